package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates invoice operations.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// annotate applies the derived display status.
func (s *Service) annotate(inv Invoice) Invoice {
	inv.Status = inv.StatusAt(s.now())
	return inv
}

// List returns one page of invoices with derived statuses.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filters, s.now())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range invoices {
		invoices[i] = s.annotate(invoices[i])
	}
	return invoices, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// Get fetches one invoice with its payment history.
func (s *Service) Get(ctx context.Context, id string) (Invoice, []Payment, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return Invoice{}, nil, err
	}
	return s.annotate(inv), payments, nil
}

// Create validates, computes totals and stores a new pending invoice.
func (s *Service) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	if err := validateInvoice(inv); err != nil {
		return Invoice{}, err
	}
	now := s.now().UTC()
	inv.ID = uuid.NewString()
	inv.InvoiceNumber = fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), now.UnixNano()%10000)
	if inv.Date.IsZero() {
		inv.Date = now
	}
	inv.Subtotal, inv.Total = Totals(inv.Treatments, inv.DiscountPct, inv.TaxPct)
	inv.Status = StatusPending
	inv.PaidAmount = 0
	inv.Remaining = inv.Total
	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, "invoice:create", created.ID, map[string]any{"invoice_number": created.InvoiceNumber, "total": created.Total})
	return s.annotate(created), nil
}

// Update revalidates, recomputes totals and stores changes. The payment
// status is re-evaluated against the new total.
func (s *Service) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	existing, err := s.repo.Get(ctx, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	if err := validateInvoice(inv); err != nil {
		return Invoice{}, err
	}
	inv.InvoiceNumber = existing.InvoiceNumber
	inv.PaidAmount = existing.PaidAmount
	inv.Subtotal, inv.Total = Totals(inv.Treatments, inv.DiscountPct, inv.TaxPct)
	inv.Status = StatusPending
	inv.ApplyPayment(0)
	updated, err := s.repo.Update(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, "invoice:update", updated.ID, map[string]any{"total": updated.Total})
	return s.annotate(updated), nil
}

// Delete removes an invoice and its payment history.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "invoice:delete", id, nil)
	return nil
}

// RecordPayment applies a payment and persists the resulting balance.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, amount float64, method, note string) (Invoice, error) {
	if amount <= 0 {
		return Invoice{}, ErrInvalidAmount
	}
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == StatusPaid {
		return Invoice{}, ErrAlreadyPaid
	}
	inv.ApplyPayment(amount)
	payment := Payment{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    method,
		Note:      note,
		PaidAt:    s.now().UTC(),
	}
	if err := s.repo.RecordPayment(ctx, inv, payment); err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, "invoice:payment", invoiceID, map[string]any{"amount": amount, "status": inv.Status})
	return s.annotate(inv), nil
}

// Stats summarises billing with month-over-month revenue movement.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	prev := shared.PreviousMonth(now)

	dates, paid, totals, err := s.repo.MonthlyFigures(ctx, prev.Start)
	if err != nil {
		return Stats{}, err
	}
	revenueThis, revenueLast := shared.SplitByMonth(now, dates, paid)
	var pendingThis, pendingLast float64
	pending := make([]float64, len(totals))
	for i := range totals {
		pending[i] = totals[i] - paid[i]
	}
	pendingThis, pendingLast = shared.SplitByMonth(now, dates, pending)

	pendingTotal, overdueCount, invoiceCount, invoiced, collected, err := s.repo.OpenFigures(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Revenue:       revenueThis,
		RevenueChange: shared.PeriodChange(revenueThis, revenueLast),
		Pending:       pendingTotal,
		PendingChange: shared.PeriodChange(pendingThis, pendingLast),
		InvoiceCount:  invoiceCount,
		OverdueCount:  overdueCount,
	}
	if invoiced > 0 {
		stats.CollectionRate = round2(collected / invoiced * 100)
	}
	return stats, nil
}

func validateInvoice(inv Invoice) error {
	if strings.TrimSpace(inv.PatientID) == "" {
		return fmt.Errorf("%w: patient is required", httpx.ErrValidation)
	}
	if len(inv.Treatments) == 0 {
		return fmt.Errorf("%w: at least one treatment is required", httpx.ErrValidation)
	}
	for _, t := range inv.Treatments {
		if strings.TrimSpace(t.Name) == "" || t.Quantity <= 0 || t.Price < 0 {
			return fmt.Errorf("%w: each treatment needs a name, a positive quantity and a non-negative price", httpx.ErrValidation)
		}
	}
	if inv.DiscountPct < 0 || inv.DiscountPct > 100 {
		return fmt.Errorf("%w: discount must be between 0 and 100 percent", httpx.ErrValidation)
	}
	if inv.TaxPct < 0 || inv.TaxPct > 100 {
		return fmt.Errorf("%w: tax must be between 0 and 100 percent", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "invoice",
		EntityID: entityID,
		Meta:     meta,
	})
}
