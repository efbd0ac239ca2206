// Package appointments manages the clinic schedule and its status machine.
package appointments

import (
	"errors"
	"fmt"
	"time"
)

// Status tracks an appointment through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions maps each status to the statuses it may move to. Scheduled
// marks a confirmed booking that has been placed into the day plan.
// Cancellation is allowed from every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusScheduled, StatusInProgress, StatusCancelled},
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// CanTransition reports whether the move from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a booked slot for a patient with a dentist.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	DentistName string    `json:"dentist_name"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Treatment   string    `json:"treatment,omitempty"`
	DurationMin int       `json:"duration"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	PhoneNumber string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats summarises scheduling for the dashboard.
type Stats struct {
	Today          int     `json:"today"`
	ThisMonth      int     `json:"this_month"`
	MonthChange    float64 `json:"month_change"`
	CompletionRate float64 `json:"completion_rate"`
}

var (
	// ErrAppointmentNotFound indicates a missing appointment.
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")
	// ErrInvalidTransition rejects an illegal status move.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
)

// TransitionError wraps ErrInvalidTransition with the offending pair.
func TransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
