package patients

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/shared"
)

// Repository persists patients in PostgreSQL.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Patient, int, error)
	Get(ctx context.Context, id string) (Patient, error)
	Create(ctx context.Context, patient Patient) (Patient, error)
	Update(ctx context.Context, patient Patient) (Patient, error)
	Delete(ctx context.Context, id string) error
	TouchLastVisit(ctx context.Context, id string, visitedAt time.Time) error
	Counts(ctx context.Context) (total, active int, err error)
	CreationDates(ctx context.Context, since time.Time) ([]time.Time, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const patientColumns = `id, first_name, last_name, age, gender, phone, status, priority, balance, last_visit, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Patient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (first_name ILIKE $` + n + ` OR last_name ILIKE $` + n + ` OR phone ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patients: count: %w", err)
	}

	query := `SELECT ` + patientColumns + ` FROM patients` + where +
		` ORDER BY ` + sortColumn(filters.SortBy) + ` ` + sortDir(filters.SortOrder)
	args = append(args, filters.PageSize)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("patients: list: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Patient{}, ErrPatientNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, patient Patient) (Patient, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO patients (id, first_name, last_name, age, gender, phone, status, priority, balance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`,
		patient.ID, patient.FirstName, patient.LastName, patient.Age, patient.Gender,
		patient.Phone, patient.Status, patient.Priority, patient.Balance).Scan(&patient.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Patient{}, ErrPhoneTaken
		}
		return Patient{}, fmt.Errorf("patients: create: %w", err)
	}
	return patient, nil
}

func (r *repository) Update(ctx context.Context, patient Patient) (Patient, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE patients SET first_name = $2, last_name = $3, age = $4, gender = $5, phone = $6, status = $7, priority = $8, balance = $9 WHERE id = $1`,
		patient.ID, patient.FirstName, patient.LastName, patient.Age, patient.Gender,
		patient.Phone, patient.Status, patient.Priority, patient.Balance)
	if err != nil {
		if isUniqueViolation(err) {
			return Patient{}, ErrPhoneTaken
		}
		return Patient{}, fmt.Errorf("patients: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Patient{}, ErrPatientNotFound
	}
	return r.Get(ctx, patient.ID)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patients: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repository) TouchLastVisit(ctx context.Context, id string, visitedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE patients SET last_visit = GREATEST(COALESCE(last_visit, $2), $2) WHERE id = $1`, id, visitedAt)
	return err
}

func (r *repository) Counts(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM patients`, StatusActive).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("patients: counts: %w", err)
	}
	return total, active, nil
}

func (r *repository) CreationDates(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT created_at FROM patients WHERE created_at >= $1`, since)
	if err != nil {
		return nil, fmt.Errorf("patients: creation dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &p.Gender, &p.Phone,
		&p.Status, &p.Priority, &p.Balance, &p.LastVisit, &p.CreatedAt)
	return p, err
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "last_name", "first_name", "age", "balance", "last_visit", "created_at":
		return sortBy
	default:
		return "last_name"
	}
}

func sortDir(order string) string {
	if order == shared.SortDesc {
		return "DESC"
	}
	return "ASC"
}
