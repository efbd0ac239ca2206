package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/novadent/novadent/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *Sessions
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *Sessions) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Login validates credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (shared.Actor, string, error) {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return shared.Actor{}, "", shared.ErrInvalidCredentials
	}
	if !acct.IsActive {
		return shared.Actor{}, "", ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return shared.Actor{}, "", shared.ErrInvalidCredentials
	}
	actor := shared.Actor{ID: acct.ID, Name: acct.Name, Role: acct.Role}
	token, err := s.sessions.Create(ctx, actor)
	if err != nil {
		return shared.Actor{}, "", err
	}
	return actor, token, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, token)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
