package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memoryAppointmentRepo struct {
	appointments map[string]Appointment
}

func newMemoryAppointmentRepo() *memoryAppointmentRepo {
	return &memoryAppointmentRepo{appointments: map[string]Appointment{}}
}

func (m *memoryAppointmentRepo) List(_ context.Context, filters shared.ListFilters) ([]Appointment, int, error) {
	var matched []Appointment
	for _, appt := range m.appointments {
		if !filters.MatchesSearch(appt.PatientName, appt.DentistName, appt.Treatment) {
			continue
		}
		if filters.Status != "" && string(appt.Status) != filters.Status {
			continue
		}
		matched = append(matched, appt)
	}
	return matched, len(matched), nil
}

func (m *memoryAppointmentRepo) ListForDay(_ context.Context, day time.Time, dentist string) ([]Appointment, error) {
	var matched []Appointment
	for _, appt := range m.appointments {
		if !appt.Date.Equal(day) {
			continue
		}
		if dentist != "" && appt.DentistName != dentist {
			continue
		}
		matched = append(matched, appt)
	}
	return matched, nil
}

func (m *memoryAppointmentRepo) Get(_ context.Context, id string) (Appointment, error) {
	appt, ok := m.appointments[id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

func (m *memoryAppointmentRepo) Create(_ context.Context, appt Appointment) (Appointment, error) {
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *memoryAppointmentRepo) Update(_ context.Context, appt Appointment) (Appointment, error) {
	if _, ok := m.appointments[appt.ID]; !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *memoryAppointmentRepo) SetStatus(_ context.Context, id string, from, to Status) error {
	appt, ok := m.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if appt.Status != from {
		return TransitionError(appt.Status, to)
	}
	appt.Status = to
	m.appointments[id] = appt
	return nil
}

func (m *memoryAppointmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *memoryAppointmentRepo) CountBetween(_ context.Context, from, to time.Time) (int, error) {
	count := 0
	for _, appt := range m.appointments {
		if !appt.Date.Before(from) && appt.Date.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *memoryAppointmentRepo) CompletionCounts(_ context.Context, from, to time.Time) (int, int, error) {
	completed, total := 0, 0
	for _, appt := range m.appointments {
		if appt.Date.Before(from) || !appt.Date.Before(to) {
			continue
		}
		total++
		if appt.Status == StatusCompleted {
			completed++
		}
	}
	return completed, total, nil
}

func (m *memoryAppointmentRepo) DueForReminder(_ context.Context, from, to time.Time) ([]Appointment, error) {
	var due []Appointment
	for _, appt := range m.appointments {
		if appt.Date.Before(from) || !appt.Date.Before(to) {
			continue
		}
		if (appt.Status == StatusPending || appt.Status == StatusConfirmed) && appt.PhoneNumber != "" {
			due = append(due, appt)
		}
	}
	return due, nil
}

type staticDirectory struct {
	name  string
	phone string
}

func (d staticDirectory) DisplayName(context.Context, string) (string, string, error) {
	return d.name, d.phone, nil
}

type recordingScheduler struct {
	scheduled []Appointment
	err       error
}

func (r *recordingScheduler) ScheduleReminder(_ context.Context, appt Appointment) error {
	if r.err != nil {
		return r.err
	}
	r.scheduled = append(r.scheduled, appt)
	return nil
}

var apptNow = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

func TestStatusMachine(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusScheduled},
		{StatusConfirmed, StatusInProgress},
		{StatusConfirmed, StatusCancelled},
		{StatusScheduled, StatusInProgress},
		{StatusScheduled, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tc := range allowed {
		require.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusScheduled},
		{StatusPending, StatusCompleted},
		{StatusScheduled, StatusCompleted},
		{StatusScheduled, StatusConfirmed},
		{StatusConfirmed, StatusCompleted},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusInProgress, StatusConfirmed},
	}
	for _, tc := range denied {
		require.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}

	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusConfirmed.Terminal())
	require.False(t, StatusScheduled.Terminal())
	require.True(t, ValidStatus(StatusScheduled))
}

func TestCreateResolvesPatient(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := NewService(repo, nil, staticDirectory{name: "Grace Wanjiku", phone: "+254712345678"}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Appointment{PatientID: "p1", Date: apptNow})
	require.Error(t, err, "a dentist is required")

	appt, err := svc.Create(ctx, Appointment{
		PatientID:   "p1",
		DentistName: "Dr. Otieno",
		Date:        apptNow,
		Time:        "09:30",
		Treatment:   "Cleaning",
	})
	require.NoError(t, err)
	require.NotEmpty(t, appt.ID)
	require.Equal(t, StatusPending, appt.Status)
	require.Equal(t, "Grace Wanjiku", appt.PatientName)
	require.Equal(t, "+254712345678", appt.PhoneNumber)
}

func TestTransition(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	scheduler := &recordingScheduler{}
	svc := NewService(repo, nil, nil, scheduler)
	ctx := context.Background()

	repo.appointments["a1"] = Appointment{
		ID: "a1", PatientName: "John Kamau", DentistName: "Dr. Otieno",
		Status: StatusPending, PhoneNumber: "+254700000001", Date: apptNow,
	}

	_, err := svc.Transition(ctx, "a1", Status("postponed"))
	require.Error(t, err, "unknown status must be rejected")

	_, err = svc.Transition(ctx, "a1", StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	confirmed, err := svc.Transition(ctx, "a1", StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.Len(t, scheduler.scheduled, 1, "confirming queues an SMS reminder")
	require.Equal(t, "a1", scheduler.scheduled[0].ID)

	scheduled, err := svc.Transition(ctx, "a1", StatusScheduled)
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, scheduled.Status)

	inProgress, err := svc.Transition(ctx, "a1", StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, inProgress.Status)
	require.Len(t, scheduler.scheduled, 1, "only confirmation schedules a reminder")

	done, err := svc.Transition(ctx, "a1", StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, "a1")
	require.ErrorIs(t, err, ErrInvalidTransition, "completed appointments cannot be cancelled")
}

func TestTransitionReminderFailureDoesNotBlock(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	scheduler := &recordingScheduler{err: context.DeadlineExceeded}
	svc := NewService(repo, nil, nil, scheduler)
	ctx := context.Background()

	repo.appointments["a1"] = Appointment{ID: "a1", Status: StatusPending, PhoneNumber: "+254700000001"}

	confirmed, err := svc.Transition(ctx, "a1", StatusConfirmed)
	require.NoError(t, err, "a reminder failure must not fail the transition")
	require.Equal(t, StatusConfirmed, confirmed.Status)
}

func TestCancelFromAnyActiveState(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	for _, status := range []Status{StatusPending, StatusConfirmed, StatusScheduled, StatusInProgress} {
		repo.appointments["a1"] = Appointment{ID: "a1", Status: status}
		cancelled, err := svc.Cancel(ctx, "a1")
		require.NoError(t, err, "cancel from %s", status)
		require.Equal(t, StatusCancelled, cancelled.Status)
	}
}

func TestAppointmentStats(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := NewService(repo, nil, nil, nil)
	svc.WithNow(func() time.Time { return apptNow })
	ctx := context.Background()

	today := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)

	repo.appointments["a"] = Appointment{ID: "a", Date: today, Status: StatusConfirmed}
	repo.appointments["b"] = Appointment{ID: "b", Date: today, Status: StatusCompleted}
	repo.appointments["c"] = Appointment{ID: "c", Date: earlier, Status: StatusCompleted}
	repo.appointments["d"] = Appointment{ID: "d", Date: earlier, Status: StatusCancelled}
	repo.appointments["e"] = Appointment{ID: "e", Date: lastMonth, Status: StatusCompleted}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Today)
	require.Equal(t, 4, stats.ThisMonth)
	require.InDelta(t, 300.0, stats.MonthChange, 1e-9)
	require.InDelta(t, 50.0, stats.CompletionRate, 1e-9)
}
