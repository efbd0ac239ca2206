// Package patients manages patient records.
package patients

import (
	"errors"
	"time"
)

// Patient statuses as surfaced in the dashboard.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Patient is a clinic patient record.
type Patient struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Age       int        `json:"age"`
	Gender    string     `json:"gender,omitempty"`
	Phone     string     `json:"phone"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority,omitempty"`
	Balance   float64    `json:"balance"`
	LastVisit *time.Time `json:"last_visit,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FullName joins the name parts for display and search.
func (p Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Stats summarises the patient roster for the dashboard.
type Stats struct {
	TotalPatients  int     `json:"total_patients"`
	NewThisMonth   int     `json:"new_this_month"`
	NewChange      float64 `json:"new_change"`
	ActivePatients int     `json:"active_patients"`
}

var (
	// ErrPatientNotFound indicates a missing patient record.
	ErrPatientNotFound = errors.New("patients: patient not found")
	// ErrPhoneTaken indicates the phone number is already registered.
	ErrPhoneTaken = errors.New("patients: phone number already registered")
)
