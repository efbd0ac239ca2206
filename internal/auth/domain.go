package auth

import (
	"errors"
	"time"
)

// Staff roles. Every authenticated request carries exactly one.
const (
	RoleAdmin        = "admin"
	RoleDentist      = "dentist"
	RoleReceptionist = "receptionist"
)

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleDentist || role == RoleReceptionist
}

// Account is an authenticatable staff login.
type Account struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// ErrAccountDisabled rejects logins for deactivated staff.
var ErrAccountDisabled = errors.New("auth: account disabled")
