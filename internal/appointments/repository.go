package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/shared"
)

// Repository persists appointments in PostgreSQL.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Appointment, int, error)
	ListForDay(ctx context.Context, day time.Time, dentist string) ([]Appointment, error)
	Get(ctx context.Context, id string) (Appointment, error)
	Create(ctx context.Context, appt Appointment) (Appointment, error)
	Update(ctx context.Context, appt Appointment) (Appointment, error)
	SetStatus(ctx context.Context, id string, from, to Status) error
	Delete(ctx context.Context, id string) error
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	CompletionCounts(ctx context.Context, from, to time.Time) (completed, total int, err error)
	DueForReminder(ctx context.Context, from, to time.Time) ([]Appointment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const appointmentColumns = `id, patient_id, patient_name, dentist_name, appt_date, appt_time, treatment, duration_min, status, notes, phone, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Appointment, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (patient_name ILIKE $` + n + ` OR dentist_name ILIKE $` + n + ` OR treatment ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filters.Dentist != "" {
		args = append(args, filters.Dentist)
		where += ` AND dentist_name = $` + strconv.Itoa(len(args))
	}
	if !filters.DateFrom.IsZero() {
		args = append(args, filters.DateFrom)
		where += ` AND appt_date >= $` + strconv.Itoa(len(args))
	}
	if !filters.DateTo.IsZero() {
		args = append(args, filters.DateTo)
		where += ` AND appt_date <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("appointments: count: %w", err)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where +
		` ORDER BY ` + sortColumn(filters.SortBy) + ` ` + sortDir(filters.SortOrder) + `, appt_time ASC`
	args = append(args, filters.PageSize)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repository) ListForDay(ctx context.Context, day time.Time, dentist string) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE appt_date = $1`
	args := []any{day}
	if dentist != "" {
		args = append(args, dentist)
		query += ` AND dentist_name = $2`
	}
	query += ` ORDER BY appt_time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: day: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrAppointmentNotFound
	}
	return a, err
}

func (r *repository) Create(ctx context.Context, appt Appointment) (Appointment, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_id, patient_name, dentist_name, appt_date, appt_time, treatment, duration_min, status, notes, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING created_at`,
		appt.ID, appt.PatientID, appt.PatientName, appt.DentistName, appt.Date, appt.Time,
		appt.Treatment, appt.DurationMin, appt.Status, appt.Notes, appt.PhoneNumber).Scan(&appt.CreatedAt)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: create: %w", err)
	}
	return appt, nil
}

func (r *repository) Update(ctx context.Context, appt Appointment) (Appointment, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments
		 SET patient_id = $2, patient_name = $3, dentist_name = $4, appt_date = $5, appt_time = $6,
		     treatment = $7, duration_min = $8, notes = $9, phone = $10
		 WHERE id = $1`,
		appt.ID, appt.PatientID, appt.PatientName, appt.DentistName, appt.Date, appt.Time,
		appt.Treatment, appt.DurationMin, appt.Notes, appt.PhoneNumber)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Appointment{}, ErrAppointmentNotFound
	}
	return r.Get(ctx, appt.ID)
}

// SetStatus applies a transition, guarding on the expected current status so
// concurrent moves cannot race past the state machine.
func (r *repository) SetStatus(ctx context.Context, id string, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("appointments: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return TransitionError(from, to)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *repository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE appt_date >= $1 AND appt_date < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("appointments: count between: %w", err)
	}
	return n, nil
}

func (r *repository) CompletionCounts(ctx context.Context, from, to time.Time) (int, int, error) {
	var completed, total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = $3), COUNT(*)
		 FROM appointments WHERE appt_date >= $1 AND appt_date < $2`,
		from, to, StatusCompleted).Scan(&completed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("appointments: completion counts: %w", err)
	}
	return completed, total, nil
}

func (r *repository) DueForReminder(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE appt_date >= $1 AND appt_date < $2 AND status IN ($3, $4) AND phone <> ''
		 ORDER BY appt_date, appt_time`,
		from, to, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("appointments: reminders: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DentistName, &a.Date, &a.Time,
		&a.Treatment, &a.DurationMin, &a.Status, &a.Notes, &a.PhoneNumber, &a.CreatedAt)
	return a, err
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "appt_date", "patient_name", "dentist_name", "status", "created_at":
		return sortBy
	default:
		return "appt_date"
	}
}

func sortDir(order string) string {
	if order == shared.SortDesc {
		return "DESC"
	}
	return "ASC"
}
