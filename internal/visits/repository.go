package visits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/shared"
)

// Repository persists visit records in PostgreSQL. Attachments travel as a
// JSONB column beside the row.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Visit, int, error)
	ListForPatient(ctx context.Context, patientID string) ([]Visit, error)
	Get(ctx context.Context, id string) (Visit, error)
	Create(ctx context.Context, visit Visit) (Visit, error)
	Update(ctx context.Context, visit Visit) (Visit, error)
	Delete(ctx context.Context, id string) error
	Dentists(ctx context.Context) ([]string, error)
	Treatments(ctx context.Context) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const visitColumns = `id, patient_id, patient_name, dentist_name, visit_date, treatment, diagnosis, medications, notes, cost, status, attachments, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Visit, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (patient_name ILIKE $` + n + ` OR treatment ILIKE $` + n + ` OR diagnosis ILIKE $` + n + `)`
	}
	if filters.Dentist != "" {
		args = append(args, filters.Dentist)
		where += ` AND dentist_name = $` + strconv.Itoa(len(args))
	}
	if filters.Treatment != "" {
		args = append(args, filters.Treatment)
		where += ` AND treatment = $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if !filters.DateFrom.IsZero() {
		args = append(args, filters.DateFrom)
		where += ` AND visit_date >= $` + strconv.Itoa(len(args))
	}
	if !filters.DateTo.IsZero() {
		args = append(args, filters.DateTo)
		where += ` AND visit_date <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("visits: count: %w", err)
	}

	query := `SELECT ` + visitColumns + ` FROM visit_records` + where +
		` ORDER BY ` + sortColumn(filters.SortBy) + ` ` + sortDir(filters.SortOrder)
	args = append(args, filters.PageSize)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("visits: list: %w", err)
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) ListForPatient(ctx context.Context, patientID string) ([]Visit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitColumns+` FROM visit_records WHERE patient_id = $1 ORDER BY visit_date DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("visits: list for patient: %w", err)
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Visit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM visit_records WHERE id = $1`, id)
	v, err := scanVisit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visit{}, ErrVisitNotFound
	}
	return v, err
}

func (r *repository) Create(ctx context.Context, visit Visit) (Visit, error) {
	attachments, err := json.Marshal(visit.Attachments)
	if err != nil {
		return Visit{}, fmt.Errorf("visits: encode attachments: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO visit_records (id, patient_id, patient_name, dentist_name, visit_date, treatment, diagnosis, medications, notes, cost, status, attachments)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING created_at`,
		visit.ID, visit.PatientID, visit.PatientName, visit.DentistName, visit.Date,
		visit.Treatment, visit.Diagnosis, visit.Medications, visit.Notes, visit.Cost,
		visit.Status, attachments).Scan(&visit.CreatedAt)
	if err != nil {
		return Visit{}, fmt.Errorf("visits: create: %w", err)
	}
	return visit, nil
}

func (r *repository) Update(ctx context.Context, visit Visit) (Visit, error) {
	attachments, err := json.Marshal(visit.Attachments)
	if err != nil {
		return Visit{}, fmt.Errorf("visits: encode attachments: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE visit_records
		 SET dentist_name = $2, visit_date = $3, treatment = $4, diagnosis = $5, medications = $6, notes = $7, cost = $8, status = $9, attachments = $10
		 WHERE id = $1`,
		visit.ID, visit.DentistName, visit.Date, visit.Treatment, visit.Diagnosis,
		visit.Medications, visit.Notes, visit.Cost, visit.Status, attachments)
	if err != nil {
		return Visit{}, fmt.Errorf("visits: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Visit{}, ErrVisitNotFound
	}
	return r.Get(ctx, visit.ID)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM visit_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("visits: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitNotFound
	}
	return nil
}

func (r *repository) Dentists(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT dentist_name FROM visit_records ORDER BY dentist_name`)
}

func (r *repository) Treatments(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT treatment FROM visit_records WHERE treatment <> '' ORDER BY treatment`)
}

func (r *repository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("visits: distinct: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanVisit(row pgx.Row) (Visit, error) {
	var (
		v   Visit
		raw []byte
	)
	err := row.Scan(&v.ID, &v.PatientID, &v.PatientName, &v.DentistName, &v.Date,
		&v.Treatment, &v.Diagnosis, &v.Medications, &v.Notes, &v.Cost, &v.Status,
		&raw, &v.CreatedAt)
	if err != nil {
		return Visit{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v.Attachments); err != nil {
			return Visit{}, fmt.Errorf("visits: decode attachments: %w", err)
		}
	}
	return v, nil
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "visit_date", "patient_name", "dentist_name", "treatment", "cost", "created_at":
		return sortBy
	default:
		return "visit_date"
	}
}

func sortDir(order string) string {
	if order == shared.SortDesc {
		return "DESC"
	}
	return "ASC"
}
