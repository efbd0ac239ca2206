package inventory

import (
	"errors"
	"math"
	"time"
)

// Category enumerates the supply categories a clinic stocks.
type Category string

const (
	CategoryHygiene     Category = "hygiene"
	CategoryRestorative Category = "restorative"
	CategorySafety      Category = "safety"
	CategoryMedications Category = "medications"
	CategoryInstruments Category = "instruments"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryHygiene, CategoryRestorative, CategorySafety, CategoryMedications, CategoryInstruments:
		return true
	}
	return false
}

// Status is the derived stock/expiry state of an item.
type Status string

const (
	StatusGood     Status = "good"
	StatusLow      Status = "low"
	StatusOut      Status = "out"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// DefaultExpiryWindowDays is how far ahead an expiry date flags an item as
// expiring.
const DefaultExpiryWindowDays = 90

// Item is a stocked supply.
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     Category   `json:"category"`
	CurrentStock int        `json:"current_stock"`
	MinStock     int        `json:"min_stock"`
	MaxStock     int        `json:"max_stock"`
	UnitPrice    float64    `json:"unit_price"`
	Supplier     string     `json:"supplier,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DaysUntilExpiry returns ceil((expiry - now) / 24h). Items without an
// expiry date report a negative sentinel that never matches a window.
func (i Item) DaysUntilExpiry(now time.Time) (int, bool) {
	if i.ExpiryDate == nil {
		return 0, false
	}
	return int(math.Ceil(i.ExpiryDate.Sub(now).Hours() / 24)), true
}

// StatusAt derives the display status at the given instant. Priority order
// is deliberate: stock checks win over expiry checks, so an item that is
// both low and expiring reports low.
func (i Item) StatusAt(now time.Time, expiryWindowDays int) Status {
	if expiryWindowDays <= 0 {
		expiryWindowDays = DefaultExpiryWindowDays
	}
	if i.CurrentStock <= 0 {
		return StatusOut
	}
	if i.CurrentStock <= i.MinStock {
		return StatusLow
	}
	if days, ok := i.DaysUntilExpiry(now); ok {
		if days <= 0 {
			return StatusExpired
		}
		if days <= expiryWindowDays {
			return StatusExpiring
		}
	}
	return StatusGood
}

// StockValue is the current holding valued at unit price.
func (i Item) StockValue() float64 {
	return float64(i.CurrentStock) * i.UnitPrice
}

// RequisitionStatus tracks the approval lifecycle of a requisition.
type RequisitionStatus string

const (
	RequisitionPending  RequisitionStatus = "pending"
	RequisitionApproved RequisitionStatus = "approved"
	RequisitionRejected RequisitionStatus = "rejected"
)

// Priority grades requisition urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// RequisitionLine is one requested item within a requisition.
type RequisitionLine struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Requisition is a purchase request raised by staff.
type Requisition struct {
	ID          string            `json:"id"`
	ReqNumber   string            `json:"req_number"`
	RequestedBy string            `json:"requested_by"`
	Priority    Priority          `json:"priority"`
	Status      RequisitionStatus `json:"status"`
	Lines       []RequisitionLine `json:"items"`
	Notes       string            `json:"notes,omitempty"`
	Date        time.Time         `json:"date"`
	DecidedBy   string            `json:"decided_by,omitempty"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

// RestockResult is the per-item outcome of a bulk restock.
type RestockResult struct {
	ItemID string `json:"item_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Stock  int    `json:"stock,omitempty"`
}

// Stats summarises the stockroom for the dashboard.
type Stats struct {
	TotalItems       int     `json:"total_items"`
	TotalItemsChange float64 `json:"total_items_change"`
	StockValue       float64 `json:"stock_value"`
	StockValueChange float64 `json:"stock_value_change"`
	LowStockCount    int     `json:"low_stock_count"`
	LowStockChange   float64 `json:"low_stock_change"`
	OutOfStockCount  int     `json:"out_of_stock_count"`
	ExpiringSoon     int     `json:"expiring_soon"`
}

var (
	// ErrItemNotFound indicates a missing inventory item.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrRequisitionNotFound indicates a missing requisition.
	ErrRequisitionNotFound = errors.New("inventory: requisition not found")
	// ErrRequisitionDecided rejects transitions out of a terminal state.
	ErrRequisitionDecided = errors.New("inventory: requisition already decided")
	// ErrInvalidQuantity indicates a non-positive restock quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
)
