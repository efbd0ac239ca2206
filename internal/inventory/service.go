package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novadent/novadent/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockChangeNotifier is poked after any stock mutation so the low-stock
// scanner can coalesce bursts into a single pass.
type StockChangeNotifier interface {
	StockChanged(itemID string)
}

// Service coordinates inventory operations.
type Service struct {
	repo             Repository
	audit            AuditPort
	notifier         StockChangeNotifier
	expiryWindowDays int
	now              func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	ExpiryWindowDays int
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, notifier StockChangeNotifier, cfg ServiceConfig) *Service {
	window := cfg.ExpiryWindowDays
	if window <= 0 {
		window = DefaultExpiryWindowDays
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, expiryWindowDays: window, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ItemView is an Item annotated with its derived status.
type ItemView struct {
	Item
	Status Status `json:"status"`
}

func (s *Service) annotate(item Item) ItemView {
	return ItemView{Item: item, Status: item.StatusAt(s.now(), s.expiryWindowDays)}
}

// ListItems returns one page of items with derived statuses.
func (s *Service) ListItems(ctx context.Context, filters shared.ListFilters) ([]ItemView, shared.Pagination, error) {
	items, total, err := s.repo.ListItems(ctx, filters, s.now(), s.expiryWindowDays)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, s.annotate(item))
	}
	return views, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// GetItem fetches a single item.
func (s *Service) GetItem(ctx context.Context, id string) (ItemView, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return ItemView{}, err
	}
	return s.annotate(item), nil
}

// CreateItem validates and stores a new item.
func (s *Service) CreateItem(ctx context.Context, item Item) (ItemView, error) {
	if err := validateItem(item); err != nil {
		return ItemView{}, err
	}
	item.ID = uuid.NewString()
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return ItemView{}, err
	}
	s.recordAudit(ctx, "inventory:create", created.ID, map[string]any{"name": created.Name})
	return s.annotate(created), nil
}

// UpdateItem validates and stores changes to an existing item.
func (s *Service) UpdateItem(ctx context.Context, item Item) (ItemView, error) {
	if item.ID == "" {
		return ItemView{}, fmt.Errorf("%w: item id required", ErrItemNotFound)
	}
	if err := validateItem(item); err != nil {
		return ItemView{}, err
	}
	updated, err := s.repo.UpdateItem(ctx, item)
	if err != nil {
		return ItemView{}, err
	}
	s.notifyStockChange(updated.ID)
	s.recordAudit(ctx, "inventory:update", updated.ID, map[string]any{"name": updated.Name})
	return s.annotate(updated), nil
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "inventory:delete", id, nil)
	return nil
}

// Restock adds quantity to an item's current stock.
func (s *Service) Restock(ctx context.Context, id string, quantity int) (ItemView, error) {
	if quantity <= 0 {
		return ItemView{}, ErrInvalidQuantity
	}
	item, err := s.repo.AdjustStock(ctx, id, quantity)
	if err != nil {
		return ItemView{}, err
	}
	s.notifyStockChange(item.ID)
	s.recordAudit(ctx, "inventory:restock", item.ID, map[string]any{"quantity": quantity, "stock": item.CurrentStock})
	return s.annotate(item), nil
}

// RestockRequest is one line of a bulk restock.
type RestockRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required"`
}

// BulkRestock applies each restock independently and reports per-item
// results. Items that fail do not roll back the ones that succeeded.
func (s *Service) BulkRestock(ctx context.Context, requests []RestockRequest) []RestockResult {
	results := make([]RestockResult, 0, len(requests))
	for _, req := range requests {
		view, err := s.Restock(ctx, req.ItemID, req.Quantity)
		if err != nil {
			results = append(results, RestockResult{ItemID: req.ItemID, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, RestockResult{ItemID: req.ItemID, OK: true, Stock: view.CurrentStock})
	}
	return results
}

// ListRequisitions returns one page of requisitions.
func (s *Service) ListRequisitions(ctx context.Context, filters shared.ListFilters) ([]Requisition, shared.Pagination, error) {
	reqs, total, err := s.repo.ListRequisitions(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return reqs, shared.NewPagination(filters.Page, filters.PageSize, total), nil
}

// CreateRequisition stores a new pending requisition.
func (s *Service) CreateRequisition(ctx context.Context, req Requisition) (Requisition, error) {
	if strings.TrimSpace(req.RequestedBy) == "" {
		return Requisition{}, fmt.Errorf("%w: requested_by is required", errValidation)
	}
	if len(req.Lines) == 0 {
		return Requisition{}, fmt.Errorf("%w: at least one line is required", errValidation)
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.Item) == "" || line.Quantity <= 0 {
			return Requisition{}, fmt.Errorf("%w: each line needs an item and a positive quantity", errValidation)
		}
	}
	if !ValidPriority(req.Priority) {
		req.Priority = PriorityMedium
	}
	now := s.now().UTC()
	req.ID = uuid.NewString()
	req.ReqNumber = fmt.Sprintf("REQ-%s-%04d", now.Format("20060102"), now.UnixNano()%10000)
	req.Status = RequisitionPending
	req.Date = now
	created, err := s.repo.CreateRequisition(ctx, req)
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, "requisition:create", created.ID, map[string]any{"req_number": created.ReqNumber})
	return created, nil
}

// ApproveRequisition moves a pending requisition into its approved terminal
// state.
func (s *Service) ApproveRequisition(ctx context.Context, id string) (Requisition, error) {
	return s.decideRequisition(ctx, id, RequisitionApproved)
}

// RejectRequisition moves a pending requisition into its rejected terminal
// state.
func (s *Service) RejectRequisition(ctx context.Context, id string) (Requisition, error) {
	return s.decideRequisition(ctx, id, RequisitionRejected)
}

func (s *Service) decideRequisition(ctx context.Context, id string, status RequisitionStatus) (Requisition, error) {
	actor := shared.ActorFromContext(ctx)
	if err := s.repo.DecideRequisition(ctx, id, status, actor.Name, s.now().UTC()); err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, "requisition:"+string(status), id, nil)
	return s.repo.GetRequisition(ctx, id)
}

// DeleteRequisition removes a requisition in any state.
func (s *Service) DeleteRequisition(ctx context.Context, id string) error {
	if err := s.repo.DeleteRequisition(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "requisition:delete", id, nil)
	return nil
}

// ScanAlerts returns every item currently low or out of stock.
func (s *Service) ScanAlerts(ctx context.Context) ([]ItemView, error) {
	items, err := s.repo.AllItems(ctx)
	if err != nil {
		return nil, err
	}
	var alerts []ItemView
	for _, item := range items {
		view := s.annotate(item)
		if view.Status == StatusLow || view.Status == StatusOut {
			alerts = append(alerts, view)
		}
	}
	return alerts, nil
}

// Stats summarises the stockroom with month-over-month movement.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	items, err := s.repo.AllItems(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	var lowThisMonth, lowLastMonth float64
	var valueThisMonth, valueLastMonth float64
	cur := shared.CurrentMonth(now)
	prev := shared.PreviousMonth(now)

	for _, item := range items {
		stats.TotalItems++
		stats.StockValue += item.StockValue()
		switch item.StatusAt(now, s.expiryWindowDays) {
		case StatusLow:
			stats.LowStockCount++
		case StatusOut:
			stats.OutOfStockCount++
		case StatusExpiring:
			stats.ExpiringSoon++
		}
		switch {
		case cur.Contains(item.CreatedAt):
			valueThisMonth += item.StockValue()
			if item.CurrentStock > 0 && item.CurrentStock <= item.MinStock {
				lowThisMonth++
			}
		case prev.Contains(item.CreatedAt):
			valueLastMonth += item.StockValue()
			if item.CurrentStock > 0 && item.CurrentStock <= item.MinStock {
				lowLastMonth++
			}
		}
	}

	created, err := s.repo.ItemCreationDates(ctx, prev.Start)
	if err != nil {
		return Stats{}, err
	}
	thisMonth, lastMonth := shared.SplitByMonth(now, created, nil)
	stats.TotalItemsChange = shared.PeriodChange(thisMonth, lastMonth)
	stats.StockValueChange = shared.PeriodChange(valueThisMonth, valueLastMonth)
	stats.LowStockChange = shared.PeriodChange(lowThisMonth, lowLastMonth)
	return stats, nil
}

func (s *Service) notifyStockChange(itemID string) {
	if s.notifier != nil {
		s.notifier.StockChanged(itemID)
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "inventory",
		EntityID: entityID,
		Meta:     meta,
	})
}
