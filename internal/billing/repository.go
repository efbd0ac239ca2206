package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/platform/db"
	"github.com/novadent/novadent/internal/shared"
)

// Payment is a recorded payment against an invoice.
type Payment struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Note      string    `json:"note,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

// Repository persists invoices and payments in PostgreSQL.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, now time.Time) ([]Invoice, int, error)
	Get(ctx context.Context, id string) (Invoice, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	Delete(ctx context.Context, id string) error
	RecordPayment(ctx context.Context, inv Invoice, payment Payment) error
	ListPayments(ctx context.Context, invoiceID string) ([]Payment, error)
	MonthlyFigures(ctx context.Context, since time.Time) (dates []time.Time, paid []float64, totals []float64, err error)
	OpenFigures(ctx context.Context) (pendingTotal float64, overdueCount, invoiceCount int, invoiced float64, collected float64, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, invoice_number, inv_date, patient_id, patient_name, dentist_id, dentist_name, treatments, subtotal, discount_pct, tax_pct, total, status, paid_amount, due_date, notes, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters, now time.Time) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (invoice_number ILIKE $` + n + ` OR patient_name ILIKE $` + n + `)`
	}
	if filters.Dentist != "" {
		args = append(args, filters.Dentist)
		where += ` AND dentist_id = $` + strconv.Itoa(len(args))
	}
	if !filters.DateFrom.IsZero() {
		args = append(args, filters.DateFrom)
		where += ` AND inv_date >= $` + strconv.Itoa(len(args))
	}
	if !filters.DateTo.IsZero() {
		args = append(args, filters.DateTo.AddDate(0, 0, 1))
		where += ` AND inv_date < $` + strconv.Itoa(len(args))
	}
	// Overdue is derived, so the filter condition mirrors Invoice.StatusAt.
	switch InvoiceStatus(filters.Status) {
	case StatusPaid:
		where += ` AND status = 'paid'`
	case StatusOverdue:
		args = append(args, now)
		where += ` AND status <> 'paid' AND due_date IS NOT NULL AND due_date < $` + strconv.Itoa(len(args))
	case StatusPending, StatusPartial:
		args = append(args, filters.Status)
		n := strconv.Itoa(len(args))
		args = append(args, now)
		where += ` AND status = $` + n + ` AND (due_date IS NULL OR due_date >= $` + strconv.Itoa(len(args)) + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count invoices: %w", err)
	}

	args = append(args, filters.PageSize)
	limitArg := strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	offsetArg := strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices`+where+` ORDER BY inv_date DESC, invoice_number DESC LIMIT $`+limitArg+` OFFSET $`+offsetArg,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (id, invoice_number, inv_date, patient_id, patient_name, dentist_id, dentist_name, treatments, subtotal, discount_pct, tax_pct, total, status, paid_amount, due_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING created_at`,
		inv.ID, inv.InvoiceNumber, inv.Date, inv.PatientID, inv.PatientName, inv.DentistID, inv.DentistName,
		inv.Treatments, inv.Subtotal, inv.DiscountPct, inv.TaxPct, inv.Total, inv.Status, inv.PaidAmount,
		inv.DueDate, inv.Notes).Scan(&inv.CreatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("billing: create invoice: %w", err)
	}
	return inv, nil
}

func (r *repository) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET inv_date = $2, patient_id = $3, patient_name = $4, dentist_id = $5, dentist_name = $6, treatments = $7, subtotal = $8, discount_pct = $9, tax_pct = $10, total = $11, status = $12, paid_amount = $13, due_date = $14, notes = $15
		 WHERE id = $1`,
		inv.ID, inv.Date, inv.PatientID, inv.PatientName, inv.DentistID, inv.DentistName, inv.Treatments,
		inv.Subtotal, inv.DiscountPct, inv.TaxPct, inv.Total, inv.Status, inv.PaidAmount, inv.DueDate, inv.Notes)
	if err != nil {
		return Invoice{}, fmt.Errorf("billing: update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Invoice{}, ErrInvoiceNotFound
	}
	return r.Get(ctx, inv.ID)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("billing: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// RecordPayment inserts the payment row and updates the invoice balance in
// one transaction.
func (r *repository) RecordPayment(ctx context.Context, inv Invoice, payment Payment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO invoice_payments (id, invoice_id, amount, method, note, paid_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			payment.ID, payment.InvoiceID, payment.Amount, payment.Method, payment.Note, payment.PaidAt); err != nil {
			return fmt.Errorf("billing: insert payment: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE invoices SET paid_amount = $2, status = $3 WHERE id = $1`,
			inv.ID, inv.PaidAmount, inv.Status)
		if err != nil {
			return fmt.Errorf("billing: update balance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInvoiceNotFound
		}
		return nil
	})
}

func (r *repository) ListPayments(ctx context.Context, invoiceID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, amount, method, note, paid_at FROM invoice_payments WHERE invoice_id = $1 ORDER BY paid_at`,
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("billing: list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Note, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) MonthlyFigures(ctx context.Context, since time.Time) ([]time.Time, []float64, []float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT inv_date, paid_amount, total FROM invoices WHERE inv_date >= $1`, since)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("billing: monthly figures: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	var paid, totals []float64
	for rows.Next() {
		var d time.Time
		var p, t float64
		if err := rows.Scan(&d, &p, &t); err != nil {
			return nil, nil, nil, err
		}
		dates = append(dates, d)
		paid = append(paid, p)
		totals = append(totals, t)
	}
	return dates, paid, totals, rows.Err()
}

func (r *repository) OpenFigures(ctx context.Context) (float64, int, int, float64, float64, error) {
	var pendingTotal, invoiced, collected float64
	var overdueCount, invoiceCount int
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total - paid_amount) FILTER (WHERE status <> 'paid'), 0),
			COUNT(*) FILTER (WHERE status <> 'paid' AND due_date IS NOT NULL AND due_date < NOW()),
			COUNT(*),
			COALESCE(SUM(total), 0),
			COALESCE(SUM(paid_amount), 0)
		FROM invoices`).Scan(&pendingTotal, &overdueCount, &invoiceCount, &invoiced, &collected)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("billing: open figures: %w", err)
	}
	return pendingTotal, overdueCount, invoiceCount, invoiced, collected, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Date, &inv.PatientID, &inv.PatientName,
		&inv.DentistID, &inv.DentistName, &inv.Treatments, &inv.Subtotal, &inv.DiscountPct,
		&inv.TaxPct, &inv.Total, &inv.Status, &inv.PaidAmount, &inv.DueDate, &inv.Notes, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	inv.Remaining = inv.Total - inv.PaidAmount
	if inv.Remaining < 0 {
		inv.Remaining = 0
	}
	return inv, nil
}
