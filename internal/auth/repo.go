package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/shared"
)

// Repository loads staff accounts for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	var acct Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, trim(first_name || ' ' || last_name), role, password_hash, is_active, created_at FROM staff_accounts WHERE lower(email) = lower($1)`,
		email).Scan(&acct.ID, &acct.Email, &acct.Name, &acct.Role, &acct.PasswordHash, &acct.IsActive, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrNotFound
	}
	return acct, err
}
