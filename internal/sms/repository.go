package sms

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

// Repository persists the outbox and templates in PostgreSQL.
type Repository interface {
	ListMessages(ctx context.Context, filters shared.ListFilters) ([]Message, int, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	CreateMessage(ctx context.Context, msg Message) (Message, error)
	MarkSent(ctx context.Context, id, gatewayID string, cost float64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, note string) error
	MarkDelivered(ctx context.Context, gatewayID string) error

	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	CreateTemplate(ctx context.Context, tpl Template) (Template, error)
	UpdateTemplate(ctx context.Context, tpl Template) (Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	BumpTemplateUsage(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const messageColumns = `id, recipient, body, template_id, status, gateway_id, cost, failure_note, sent_at, created_at`

func (r *repository) ListMessages(ctx context.Context, filters shared.ListFilters) ([]Message, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (recipient ILIKE $` + n + ` OR body ILIKE $` + n + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sms_messages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sms: count: %w", err)
	}

	query := `SELECT ` + messageColumns + ` FROM sms_messages` + where + ` ORDER BY created_at DESC`
	args = append(args, filters.PageSize)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PageSize)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sms: list: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *repository) GetMessage(ctx context.Context, id string) (Message, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM sms_messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	return m, err
}

func (r *repository) CreateMessage(ctx context.Context, msg Message) (Message, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sms_messages (id, recipient, body, template_id, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		msg.ID, msg.Recipient, msg.Body, msg.TemplateID, msg.Status).Scan(&msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("sms: create message: %w", err)
	}
	return msg, nil
}

func (r *repository) MarkSent(ctx context.Context, id, gatewayID string, cost float64, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sms_messages SET status = $2, gateway_id = $3, cost = $4, sent_at = $5 WHERE id = $1`,
		id, StatusSent, gatewayID, cost, sentAt)
	if err != nil {
		return fmt.Errorf("sms: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sms_messages SET status = $2, failure_note = $3 WHERE id = $1`,
		id, StatusFailed, note)
	if err != nil {
		return fmt.Errorf("sms: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkDelivered matches the provider's delivery callback by gateway id.
// Unknown ids are ignored, the provider retries callbacks.
func (r *repository) MarkDelivered(ctx context.Context, gatewayID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sms_messages SET status = $2 WHERE gateway_id = $1 AND status = $3`,
		gatewayID, StatusDelivered, StatusSent)
	if err != nil {
		return fmt.Errorf("sms: mark delivered: %w", err)
	}
	return nil
}

const templateColumns = `id, name, category, body, usage_count, created_at`

func (r *repository) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM sms_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sms: list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Body, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) GetTemplate(ctx context.Context, id string) (Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM sms_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Category, &t.Body, &t.UsageCount, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	return t, err
}

func (r *repository) CreateTemplate(ctx context.Context, tpl Template) (Template, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sms_templates (id, name, category, body) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		tpl.ID, tpl.Name, tpl.Category, tpl.Body).Scan(&tpl.CreatedAt)
	if err != nil {
		return Template{}, fmt.Errorf("sms: create template: %w", err)
	}
	return tpl, nil
}

func (r *repository) UpdateTemplate(ctx context.Context, tpl Template) (Template, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sms_templates SET name = $2, category = $3, body = $4 WHERE id = $1`,
		tpl.ID, tpl.Name, tpl.Category, tpl.Body)
	if err != nil {
		return Template{}, fmt.Errorf("sms: update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Template{}, ErrTemplateNotFound
	}
	return r.GetTemplate(ctx, tpl.ID)
}

func (r *repository) BumpTemplateUsage(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sms_templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sms: bump template usage: %w", err)
	}
	return nil
}

func (r *repository) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sms_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sms: delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.Recipient, &m.Body, &m.TemplateID, &m.Status,
		&m.GatewayID, &m.Cost, &m.FailureNote, &m.SentAt, &m.CreatedAt)
	return m, err
}
