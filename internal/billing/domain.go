// Package billing manages invoices and payment recording.
package billing

import (
	"errors"
	"math"
	"time"
)

// InvoiceStatus tracks the payment lifecycle of an invoice.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "pending"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

// Treatment is one billed line on an invoice.
type Treatment struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Invoice is a bill issued to a patient. Discount and tax are stored as
// percentages of the subtotal; Totals recomputes the derived amounts.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	Date          time.Time     `json:"date"`
	PatientID     string        `json:"patient_id"`
	PatientName   string        `json:"patient_name"`
	DentistID     string        `json:"dentist_id"`
	DentistName   string        `json:"dentist_name"`
	Treatments    []Treatment   `json:"treatments"`
	Subtotal      float64       `json:"subtotal"`
	DiscountPct   float64       `json:"discount"`
	TaxPct        float64       `json:"tax"`
	Total         float64       `json:"total"`
	Status        InvoiceStatus `json:"status"`
	PaidAmount    float64       `json:"paid_amount"`
	Remaining     float64       `json:"remainingAmount"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Totals computes subtotal and total from the treatment lines. Discount is
// applied to the subtotal and tax to the discounted base.
func Totals(treatments []Treatment, discountPct, taxPct float64) (subtotal, total float64) {
	for _, t := range treatments {
		subtotal += float64(t.Quantity) * t.Price
	}
	net := subtotal * (1 - discountPct/100)
	total = round2(net * (1 + taxPct/100))
	return round2(subtotal), total
}

// ApplyPayment records an amount against the invoice and returns the
// resulting status. Overpayment clamps remaining at zero.
func (inv *Invoice) ApplyPayment(amount float64) {
	inv.PaidAmount = round2(inv.PaidAmount + amount)
	inv.Remaining = round2(inv.Total - inv.PaidAmount)
	if inv.Remaining <= 0 {
		inv.Remaining = 0
		inv.Status = StatusPaid
		return
	}
	if inv.PaidAmount > 0 {
		inv.Status = StatusPartial
	}
}

// StatusAt reports the display status: unpaid invoices past their due date
// show overdue without mutating the stored lifecycle status.
func (inv Invoice) StatusAt(now time.Time) InvoiceStatus {
	if inv.Status == StatusPaid {
		return StatusPaid
	}
	if inv.DueDate != nil && inv.DueDate.Before(now) {
		return StatusOverdue
	}
	return inv.Status
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Stats summarises billing for the dashboard.
type Stats struct {
	Revenue        float64 `json:"revenue"`
	RevenueChange  float64 `json:"revenue_change"`
	Pending        float64 `json:"pending"`
	PendingChange  float64 `json:"pending_change"`
	InvoiceCount   int     `json:"invoice_count"`
	OverdueCount   int     `json:"overdue_count"`
	CollectionRate float64 `json:"collection_rate"`
}

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = errors.New("billing: payment amount must be positive")
	// ErrAlreadyPaid rejects payments against settled invoices.
	ErrAlreadyPaid = errors.New("billing: invoice already paid")
)
