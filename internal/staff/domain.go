// Package staff manages clinic staff profiles surfaced to the dashboard
// (dentist pickers on appointment and invoice forms, admin user management).
package staff

import (
	"errors"
	"time"
)

// Profile represents a staff member.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Specialty string    `json:"specialty,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins the name parts for display.
func (p Profile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

var (
	// ErrProfileNotFound indicates a missing staff profile.
	ErrProfileNotFound = errors.New("staff: profile not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("staff: email already registered")
)
