package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/novadent/novadent/internal/appointments"
	jobmetrics "github.com/novadent/novadent/internal/jobs"
	"github.com/novadent/novadent/internal/sms"
)

// ReminderSource lists the appointments that still need a reminder within
// a window. Satisfied by the appointments repository.
type ReminderSource interface {
	DueForReminder(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
}

// AppointmentReminder processes appointments:remind tasks. It runs on a
// daily cron and queues one reminder SMS per appointment booked for the
// next day.
type AppointmentReminder struct {
	source  ReminderSource
	sender  *sms.Service
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewAppointmentReminder constructs the handler.
func NewAppointmentReminder(source ReminderSource, sender *sms.Service, logger *slog.Logger) *AppointmentReminder {
	return &AppointmentReminder{source: source, sender: sender, logger: logger, now: time.Now}
}

func (h *AppointmentReminder) metrics() *jobmetrics.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return defaultJobMetrics
}

// Handle queues reminders for tomorrow's schedule. Send failures for one
// recipient do not stop the rest.
func (h *AppointmentReminder) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := h.metrics().Track(TaskAppointmentsRemind)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := h.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	due, err := h.source.DueForReminder(ctx, from, to)
	if err != nil {
		return err
	}
	sent := 0
	for _, appt := range due {
		body := reminderBody(appt)
		if _, err := h.sender.Send(ctx, appt.PhoneNumber, body, "", nil); err != nil {
			h.logger.Warn("reminder not queued",
				slog.String("appointment_id", appt.ID),
				slog.Any("error", err))
			continue
		}
		sent++
	}
	h.logger.Info("appointment reminders queued",
		slog.Int("due", len(due)),
		slog.Int("queued", sent))
	return nil
}

// ConfirmationNotifier queues a confirmation SMS when an appointment moves
// to confirmed. Implements the appointments service's reminder port.
type ConfirmationNotifier struct {
	sender *sms.Service
}

// NewConfirmationNotifier constructs the notifier.
func NewConfirmationNotifier(sender *sms.Service) *ConfirmationNotifier {
	return &ConfirmationNotifier{sender: sender}
}

// ScheduleReminder queues the reminder for delivery by the worker.
func (n *ConfirmationNotifier) ScheduleReminder(ctx context.Context, appt appointments.Appointment) error {
	_, err := n.sender.Send(ctx, appt.PhoneNumber, reminderBody(appt), "", nil)
	return err
}

func reminderBody(appt appointments.Appointment) string {
	msg := "Reminder: " + appt.PatientName + ", you have a dental appointment on " +
		appt.Date.Format("Mon 2 Jan")
	if appt.Time != "" {
		msg += " at " + appt.Time
	}
	msg += " with " + appt.DentistName + "."
	return msg
}
