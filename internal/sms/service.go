package sms

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/shared"
)

// Enqueuer hands a queued message to the background worker for delivery.
type Enqueuer interface {
	EnqueueSend(ctx context.Context, messageID string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the outbox, templates and the gateway.
type Service struct {
	repo     Repository
	gateway  Gateway
	enqueuer Enqueuer
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service. When enqueuer is nil messages are delivered
// inline, which the worker itself and tests rely on.
func NewService(repo Repository, gateway Gateway, enqueuer Enqueuer, audit AuditPort) *Service {
	return &Service{repo: repo, gateway: gateway, enqueuer: enqueuer, audit: audit, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ListMessages returns one page of the outbox.
func (s *Service) ListMessages(ctx context.Context, filters shared.ListFilters) ([]Message, shared.Pagination, error) {
	out, total, err := s.repo.ListMessages(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// Send queues one message for delivery. With a template id the body is
// rendered from the template and vars; otherwise body is sent verbatim.
func (s *Service) Send(ctx context.Context, recipient, body, templateID string, vars map[string]string) (Message, error) {
	if strings.TrimSpace(recipient) == "" {
		return Message{}, ErrNoRecipient
	}
	if templateID != "" {
		tpl, err := s.repo.GetTemplate(ctx, templateID)
		if err != nil {
			return Message{}, err
		}
		body = tpl.Render(vars)
	}
	if strings.TrimSpace(body) == "" {
		return Message{}, ErrEmptyBody
	}

	msg := Message{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Body:       body,
		TemplateID: templateID,
		Status:     StatusQueued,
	}
	created, err := s.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}
	if templateID != "" {
		// Usage counts are informational; a failed bump never blocks a send.
		_ = s.repo.BumpTemplateUsage(ctx, templateID)
	}
	s.recordAudit(ctx, "sms:queue", created.ID, map[string]any{"recipient": recipient})

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSend(ctx, created.ID); err != nil {
			return Message{}, err
		}
		return created, nil
	}
	return s.Deliver(ctx, created.ID)
}

// BulkSend queues the same message for many recipients. Each recipient is
// handled on its own; one failure does not stop the rest, and the caller
// gets an itemised result list.
func (s *Service) BulkSend(ctx context.Context, recipients []string, body, templateID string, vars map[string]string) []SendResult {
	results := make([]SendResult, 0, len(recipients))
	for _, recipient := range recipients {
		msg, err := s.Send(ctx, recipient, body, templateID, vars)
		if err != nil {
			results = append(results, SendResult{Recipient: recipient, Error: err.Error()})
			continue
		}
		results = append(results, SendResult{Recipient: recipient, MessageID: msg.ID, Sent: true})
	}
	return results
}

// Deliver pushes a queued message through the gateway and records the
// outcome. The worker calls this for each sms:send task.
func (s *Service) Deliver(ctx context.Context, messageID string) (Message, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if msg.Status != StatusQueued {
		return msg, nil
	}

	receipt, err := s.gateway.Send(ctx, msg.Recipient, msg.Body)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
			return Message{}, markErr
		}
		msg.Status = StatusFailed
		msg.FailureNote = err.Error()
		return msg, err
	}

	sentAt := s.now()
	if err := s.repo.MarkSent(ctx, msg.ID, receipt.GatewayID, receipt.Cost, sentAt); err != nil {
		return Message{}, err
	}
	msg.Status = StatusSent
	msg.GatewayID = receipt.GatewayID
	msg.Cost = receipt.Cost
	msg.SentAt = &sentAt
	return msg, nil
}

// ConfirmDelivery processes the provider's delivery callback.
func (s *Service) ConfirmDelivery(ctx context.Context, gatewayID string) error {
	return s.repo.MarkDelivered(ctx, gatewayID)
}

// Templates lists all message templates.
func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	return s.repo.ListTemplates(ctx)
}

// CreateTemplate stores a new template.
func (s *Service) CreateTemplate(ctx context.Context, name, category, body string) (Template, error) {
	if strings.TrimSpace(body) == "" {
		return Template{}, ErrEmptyBody
	}
	tpl := Template{ID: uuid.NewString(), Name: name, Category: category, Body: body}
	created, err := s.repo.CreateTemplate(ctx, tpl)
	if err != nil {
		return Template{}, err
	}
	s.recordAudit(ctx, "sms:template-create", created.ID, map[string]any{"name": name})
	return created, nil
}

// UpdateTemplate revises a template. The usage count carries over.
func (s *Service) UpdateTemplate(ctx context.Context, id, name, category, body string) (Template, error) {
	if strings.TrimSpace(body) == "" {
		return Template{}, ErrEmptyBody
	}
	updated, err := s.repo.UpdateTemplate(ctx, Template{ID: id, Name: name, Category: category, Body: body})
	if err != nil {
		return Template{}, err
	}
	s.recordAudit(ctx, "sms:template-update", id, nil)
	return updated, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "sms:template-delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "sms", EntityID: id, Meta: meta})
}
