package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PatientDirectory resolves patient details when an appointment is booked.
type PatientDirectory interface {
	DisplayName(ctx context.Context, patientID string) (name, phone string, err error)
}

// ReminderScheduler queues an SMS reminder for an upcoming appointment.
// The worker processes the task asynchronously.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, appt Appointment) error
}

// Service coordinates scheduling operations.
type Service struct {
	repo      Repository
	audit     AuditPort
	directory PatientDirectory
	reminders ReminderScheduler
	now       func() time.Time
}

// NewService builds Service. directory and reminders may be nil.
func NewService(repo Repository, audit AuditPort, directory PatientDirectory, reminders ReminderScheduler) *Service {
	return &Service{repo: repo, audit: audit, directory: directory, reminders: reminders, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// List returns one page of appointments.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Appointment, shared.Pagination, error) {
	out, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// Day returns the full schedule for one date, optionally narrowed to a
// dentist, ordered by slot time.
func (s *Service) Day(ctx context.Context, day time.Time, dentist string) ([]Appointment, error) {
	return s.repo.ListForDay(ctx, day.Truncate(24*time.Hour), dentist)
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	return s.repo.Get(ctx, id)
}

// Create books a new appointment in the pending state.
func (s *Service) Create(ctx context.Context, appt Appointment) (Appointment, error) {
	if err := validateAppointment(appt); err != nil {
		return Appointment{}, err
	}
	if s.directory != nil && appt.PatientID != "" {
		name, phone, err := s.directory.DisplayName(ctx, appt.PatientID)
		if err != nil {
			return Appointment{}, err
		}
		appt.PatientName = name
		if appt.PhoneNumber == "" {
			appt.PhoneNumber = phone
		}
	}
	appt.ID = uuid.NewString()
	appt.Status = StatusPending
	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		return Appointment{}, err
	}
	s.recordAudit(ctx, "appointment:create", created.ID, map[string]any{
		"patient": created.PatientName,
		"date":    created.Date.Format("2006-01-02"),
	})
	return created, nil
}

// Update changes booking details. Status moves go through Transition.
func (s *Service) Update(ctx context.Context, appt Appointment) (Appointment, error) {
	if err := validateAppointment(appt); err != nil {
		return Appointment{}, err
	}
	updated, err := s.repo.Update(ctx, appt)
	if err != nil {
		return Appointment{}, err
	}
	s.recordAudit(ctx, "appointment:update", updated.ID, nil)
	return updated, nil
}

// Transition moves an appointment to the requested status, enforcing the
// lifecycle rules. Confirming an appointment queues an SMS reminder.
func (s *Service) Transition(ctx context.Context, id string, next Status) (Appointment, error) {
	if !ValidStatus(next) {
		return Appointment{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, next)
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if !appt.Status.CanTransition(next) {
		return Appointment{}, TransitionError(appt.Status, next)
	}
	if err := s.repo.SetStatus(ctx, id, appt.Status, next); err != nil {
		return Appointment{}, err
	}
	prev := appt.Status
	appt.Status = next

	if next == StatusConfirmed && s.reminders != nil && appt.PhoneNumber != "" {
		if err := s.reminders.ScheduleReminder(ctx, appt); err != nil {
			s.recordAudit(ctx, "appointment:reminder-failed", appt.ID, map[string]any{"error": err.Error()})
		}
	}
	s.recordAudit(ctx, "appointment:status", appt.ID, map[string]any{"from": string(prev), "to": string(next)})
	return appt, nil
}

// Cancel is shorthand for a transition to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled)
}

// Delete removes an appointment outright.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "appointment:delete", id, nil)
	return nil
}

// Stats summarises scheduling with month-over-month movement.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.repo.CountBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return Stats{}, err
	}
	cur, prev := shared.CurrentMonth(now), shared.PreviousMonth(now)
	thisMonth, err := s.repo.CountBetween(ctx, cur.Start, cur.End)
	if err != nil {
		return Stats{}, err
	}
	lastMonth, err := s.repo.CountBetween(ctx, prev.Start, prev.End)
	if err != nil {
		return Stats{}, err
	}
	completed, total, err := s.repo.CompletionCounts(ctx, cur.Start, cur.End)
	if err != nil {
		return Stats{}, err
	}
	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}
	return Stats{
		Today:          today,
		ThisMonth:      thisMonth,
		MonthChange:    shared.PeriodChange(float64(thisMonth), float64(lastMonth)),
		CompletionRate: rate,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "appointment", EntityID: id, Meta: meta})
}

func validateAppointment(appt Appointment) error {
	if strings.TrimSpace(appt.PatientName) == "" && strings.TrimSpace(appt.PatientID) == "" {
		return fmt.Errorf("%w: a patient is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(appt.DentistName) == "" {
		return fmt.Errorf("%w: a dentist is required", httpx.ErrValidation)
	}
	if appt.Date.IsZero() {
		return fmt.Errorf("%w: a date is required", httpx.ErrValidation)
	}
	if appt.DurationMin < 0 {
		return fmt.Errorf("%w: duration cannot be negative", httpx.ErrValidation)
	}
	return nil
}
