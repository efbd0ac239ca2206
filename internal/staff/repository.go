package staff

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists staff profiles in PostgreSQL.
type Repository interface {
	List(ctx context.Context, role string) ([]Profile, error)
	Get(ctx context.Context, id string) (Profile, error)
	Create(ctx context.Context, profile Profile, passwordHash string) (Profile, error)
	Update(ctx context.Context, profile Profile) (Profile, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const profileColumns = `id, email, first_name, last_name, role, phone, specialty, is_active, created_at`

func (r *repository) List(ctx context.Context, role string) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM staff_accounts WHERE is_active`
	args := []any{}
	if role != "" {
		args = append(args, role)
		query += ` AND role = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY first_name, last_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("staff: list: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM staff_accounts WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, profile Profile, passwordHash string) (Profile, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff_accounts (id, email, first_name, last_name, role, phone, specialty, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true) RETURNING created_at`,
		profile.ID, profile.Email, profile.FirstName, profile.LastName, profile.Role,
		profile.Phone, profile.Specialty, passwordHash).Scan(&profile.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, fmt.Errorf("staff: create: %w", err)
	}
	profile.IsActive = true
	return profile, nil
}

func (r *repository) Update(ctx context.Context, profile Profile) (Profile, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff_accounts SET email = $2, first_name = $3, last_name = $4, role = $5, phone = $6, specialty = $7, is_active = $8 WHERE id = $1`,
		profile.ID, profile.Email, profile.FirstName, profile.LastName, profile.Role,
		profile.Phone, profile.Specialty, profile.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, fmt.Errorf("staff: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Profile{}, ErrProfileNotFound
	}
	return r.Get(ctx, profile.ID)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE staff_accounts SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("staff: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.Phone,
		&p.Specialty, &p.IsActive, &p.CreatedAt)
	return p, err
}
