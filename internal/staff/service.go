package staff

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/platform/httpx"
)

// Service wraps staff profile business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns active profiles, optionally filtered by role.
func (s *Service) List(ctx context.Context, role string) ([]Profile, error) {
	if role != "" && !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	return s.repo.List(ctx, role)
}

// Get fetches one profile.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new staff member with an initial password.
func (s *Service) Create(ctx context.Context, profile Profile, password string) (Profile, error) {
	if err := validateProfile(profile); err != nil {
		return Profile{}, err
	}
	if len(password) < 8 {
		return Profile{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Profile{}, err
	}
	profile.ID = uuid.NewString()
	return s.repo.Create(ctx, profile, hash)
}

// Update stores profile changes.
func (s *Service) Update(ctx context.Context, profile Profile) (Profile, error) {
	if err := validateProfile(profile); err != nil {
		return Profile{}, err
	}
	return s.repo.Update(ctx, profile)
}

// Delete deactivates a profile. Deactivated staff keep their history but
// can no longer log in or appear in pickers.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateProfile(profile Profile) error {
	if strings.TrimSpace(profile.Email) == "" {
		return fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(profile.FirstName) == "" && strings.TrimSpace(profile.LastName) == "" {
		return fmt.Errorf("%w: a name is required", httpx.ErrValidation)
	}
	if !auth.ValidRole(profile.Role) {
		return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, profile.Role)
	}
	return nil
}
