package inventory

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

// Repository persists inventory data in PostgreSQL.
type Repository interface {
	ListItems(ctx context.Context, filters shared.ListFilters, now time.Time, expiryWindowDays int) ([]Item, int, error)
	AllItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, item Item) (Item, error)
	DeleteItem(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) (Item, error)

	ListRequisitions(ctx context.Context, filters shared.ListFilters) ([]Requisition, int, error)
	GetRequisition(ctx context.Context, id string) (Requisition, error)
	CreateRequisition(ctx context.Context, req Requisition) (Requisition, error)
	DecideRequisition(ctx context.Context, id string, status RequisitionStatus, decidedBy string, decidedAt time.Time) error
	DeleteRequisition(ctx context.Context, id string) error

	ItemCreationDates(ctx context.Context, since time.Time) ([]time.Time, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `id, name, category, current_stock, min_stock, max_stock, unit_price, supplier, expiry_date, created_at, updated_at`

func (r *repository) ListItems(ctx context.Context, filters shared.ListFilters, now time.Time, expiryWindowDays int) ([]Item, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR supplier ILIKE $` + n + `)`
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if cond, condArgs := statusCondition(filters.Status, now, expiryWindowDays, len(args)); cond != "" {
		where += cond
		args = append(args, condArgs...)
	}
	if cond, condArgs := expiryCondition(filters.Expiry, now, expiryWindowDays, len(args)); cond != "" {
		where += cond
		args = append(args, condArgs...)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count items: %w", err)
	}

	query := `SELECT ` + itemColumns + ` FROM inventory_items` + where +
		` ORDER BY ` + itemSortColumn(filters.SortBy) + ` ` + sortDir(filters.SortOrder)
	if !filters.ViewAll {
		args = append(args, filters.PageSize)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, (filters.Page-1)*filters.PageSize)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// statusCondition mirrors Item.StatusAt so that server-driven pagination
// counts agree with the derived status shown per row.
func statusCondition(status string, now time.Time, windowDays, argOffset int) (string, []any) {
	switch Status(status) {
	case StatusOut:
		return ` AND current_stock <= 0`, nil
	case StatusLow:
		return ` AND current_stock > 0 AND current_stock <= min_stock`, nil
	case StatusExpired:
		return fmt.Sprintf(` AND current_stock > min_stock AND expiry_date IS NOT NULL AND expiry_date <= $%d`, argOffset+1),
			[]any{now}
	case StatusExpiring:
		return fmt.Sprintf(` AND current_stock > min_stock AND expiry_date IS NOT NULL AND expiry_date > $%d AND expiry_date <= $%d`, argOffset+1, argOffset+2),
			[]any{now, now.AddDate(0, 0, windowDays)}
	case StatusGood:
		return fmt.Sprintf(` AND current_stock > min_stock AND (expiry_date IS NULL OR expiry_date > $%d)`, argOffset+1),
			[]any{now.AddDate(0, 0, windowDays)}
	}
	return "", nil
}

func expiryCondition(expiry string, now time.Time, windowDays, argOffset int) (string, []any) {
	switch expiry {
	case "expiring":
		return fmt.Sprintf(` AND expiry_date IS NOT NULL AND expiry_date > $%d AND expiry_date <= $%d`, argOffset+1, argOffset+2),
			[]any{now, now.AddDate(0, 0, windowDays)}
	case "expired":
		return fmt.Sprintf(` AND expiry_date IS NOT NULL AND expiry_date <= $%d`, argOffset+1),
			[]any{now}
	case "none":
		return ` AND expiry_date IS NULL`, nil
	}
	return "", nil
}

func (r *repository) AllItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("inventory: all items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) GetItem(ctx context.Context, id string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return item, err
}

func (r *repository) CreateItem(ctx context.Context, item Item) (Item, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO inventory_items (id, name, category, current_stock, min_stock, max_stock, unit_price, supplier, expiry_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING created_at`,
		item.ID, item.Name, item.Category, item.CurrentStock, item.MinStock, item.MaxStock,
		item.UnitPrice, item.Supplier, item.ExpiryDate, now).Scan(&item.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("inventory: create item: %w", err)
	}
	item.UpdatedAt = item.CreatedAt
	return item, nil
}

func (r *repository) UpdateItem(ctx context.Context, item Item) (Item, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_items SET name = $2, category = $3, current_stock = $4, min_stock = $5, max_stock = $6, unit_price = $7, supplier = $8, expiry_date = $9, updated_at = NOW()
		 WHERE id = $1`,
		item.ID, item.Name, item.Category, item.CurrentStock, item.MinStock, item.MaxStock,
		item.UnitPrice, item.Supplier, item.ExpiryDate)
	if err != nil {
		return Item{}, fmt.Errorf("inventory: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Item{}, ErrItemNotFound
	}
	return r.GetItem(ctx, item.ID)
}

func (r *repository) DeleteItem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("inventory: delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) AdjustStock(ctx context.Context, id string, delta int) (Item, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE inventory_items SET current_stock = current_stock + $2, updated_at = NOW() WHERE id = $1 RETURNING `+itemColumns,
		id, delta)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return item, err
}

func (r *repository) ListRequisitions(ctx context.Context, filters shared.ListFilters) ([]Requisition, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (req_number ILIKE $` + n + ` OR requested_by ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requisitions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count requisitions: %w", err)
	}

	args = append(args, filters.PageSize)
	limitArg := strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	offsetArg := strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx,
		`SELECT id, req_number, requested_by, priority, status, lines, notes, req_date, decided_by, decided_at FROM requisitions`+
			where+` ORDER BY req_date DESC LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list requisitions: %w", err)
	}
	defer rows.Close()

	var reqs []Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, 0, err
		}
		reqs = append(reqs, req)
	}
	return reqs, total, rows.Err()
}

func (r *repository) GetRequisition(ctx context.Context, id string) (Requisition, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, req_number, requested_by, priority, status, lines, notes, req_date, decided_by, decided_at FROM requisitions WHERE id = $1`, id)
	req, err := scanRequisition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Requisition{}, ErrRequisitionNotFound
	}
	return req, err
}

func (r *repository) CreateRequisition(ctx context.Context, req Requisition) (Requisition, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO requisitions (id, req_number, requested_by, priority, status, lines, notes, req_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.ReqNumber, req.RequestedBy, req.Priority, req.Status, req.Lines, req.Notes, req.Date)
	if err != nil {
		return Requisition{}, fmt.Errorf("inventory: create requisition: %w", err)
	}
	return req, nil
}

func (r *repository) DecideRequisition(ctx context.Context, id string, status RequisitionStatus, decidedBy string, decidedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE requisitions SET status = $2, decided_by = $3, decided_at = $4 WHERE id = $1 AND status = 'pending'`,
		id, status, decidedBy, decidedAt)
	if err != nil {
		return fmt.Errorf("inventory: decide requisition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetRequisition(ctx, id); getErr != nil {
			return getErr
		}
		return ErrRequisitionDecided
	}
	return nil
}

func (r *repository) DeleteRequisition(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM requisitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("inventory: delete requisition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequisitionNotFound
	}
	return nil
}

func (r *repository) ItemCreationDates(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT created_at FROM inventory_items WHERE created_at >= $1`, since)
	if err != nil {
		return nil, fmt.Errorf("inventory: item creation dates: %w", err)
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

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.CurrentStock, &item.MinStock,
		&item.MaxStock, &item.UnitPrice, &item.Supplier, &item.ExpiryDate, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func scanRequisition(row pgx.Row) (Requisition, error) {
	var req Requisition
	err := row.Scan(&req.ID, &req.ReqNumber, &req.RequestedBy, &req.Priority, &req.Status,
		&req.Lines, &req.Notes, &req.Date, &req.DecidedBy, &req.DecidedAt)
	return req, err
}

func itemSortColumn(sortBy string) string {
	switch sortBy {
	case "name", "category", "current_stock", "unit_price", "expiry_date", "created_at":
		return sortBy
	default:
		return "name"
	}
}

func sortDir(order string) string {
	if order == shared.SortDesc {
		return "DESC"
	}
	return "ASC"
}
