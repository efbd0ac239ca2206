package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memoryBillingRepo struct {
	invoices map[string]Invoice
	payments map[string][]Payment
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{invoices: map[string]Invoice{}, payments: map[string][]Payment{}}
}

func (m *memoryBillingRepo) List(_ context.Context, filters shared.ListFilters, _ time.Time) ([]Invoice, int, error) {
	var matched []Invoice
	for _, inv := range m.invoices {
		if !filters.MatchesSearch(inv.InvoiceNumber, inv.PatientName) {
			continue
		}
		matched = append(matched, inv)
	}
	return matched, len(matched), nil
}

func (m *memoryBillingRepo) Get(_ context.Context, id string) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryBillingRepo) Create(_ context.Context, inv Invoice) (Invoice, error) {
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryBillingRepo) Update(_ context.Context, inv Invoice) (Invoice, error) {
	if _, ok := m.invoices[inv.ID]; !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryBillingRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrInvoiceNotFound
	}
	delete(m.invoices, id)
	delete(m.payments, id)
	return nil
}

func (m *memoryBillingRepo) RecordPayment(_ context.Context, inv Invoice, payment Payment) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	m.invoices[inv.ID] = inv
	m.payments[inv.ID] = append(m.payments[inv.ID], payment)
	return nil
}

func (m *memoryBillingRepo) ListPayments(_ context.Context, invoiceID string) ([]Payment, error) {
	return m.payments[invoiceID], nil
}

func (m *memoryBillingRepo) MonthlyFigures(_ context.Context, since time.Time) ([]time.Time, []float64, []float64, error) {
	var dates []time.Time
	var paid, totals []float64
	for _, inv := range m.invoices {
		if inv.Date.Before(since) {
			continue
		}
		dates = append(dates, inv.Date)
		paid = append(paid, inv.PaidAmount)
		totals = append(totals, inv.Total)
	}
	return dates, paid, totals, nil
}

func (m *memoryBillingRepo) OpenFigures(context.Context) (float64, int, int, float64, float64, error) {
	var pending, invoiced, collected float64
	overdue := 0
	now := time.Now()
	for _, inv := range m.invoices {
		invoiced += inv.Total
		collected += inv.PaidAmount
		if inv.Status != StatusPaid {
			pending += inv.Remaining
			if inv.DueDate != nil && inv.DueDate.Before(now) {
				overdue++
			}
		}
	}
	return pending, overdue, len(m.invoices), invoiced, collected, nil
}

var billingNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newBillingService(repo Repository) *Service {
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return billingNow })
	return svc
}

func TestTotals(t *testing.T) {
	treatments := []Treatment{
		{Name: "Cleaning", Quantity: 1, Price: 3000},
		{Name: "Filling", Quantity: 2, Price: 5000},
	}

	subtotal, total := Totals(treatments, 0, 0)
	require.InDelta(t, 13000.0, subtotal, 1e-9)
	require.InDelta(t, 13000.0, total, 1e-9)

	// Discount applies to the subtotal, tax to the discounted base.
	subtotal, total = Totals(treatments, 10, 16)
	require.InDelta(t, 13000.0, subtotal, 1e-9)
	require.InDelta(t, 13572.0, total, 1e-9)

	subtotal, total = Totals(nil, 10, 16)
	require.Zero(t, subtotal)
	require.Zero(t, total)
}

func TestApplyPayment(t *testing.T) {
	inv := Invoice{Total: 1000, Remaining: 1000, Status: StatusPending}

	inv.ApplyPayment(400)
	require.Equal(t, StatusPartial, inv.Status)
	require.InDelta(t, 400.0, inv.PaidAmount, 1e-9)
	require.InDelta(t, 600.0, inv.Remaining, 1e-9)

	inv.ApplyPayment(600)
	require.Equal(t, StatusPaid, inv.Status)
	require.Zero(t, inv.Remaining)

	// Overpayment clamps at zero instead of going negative.
	over := Invoice{Total: 1000, Remaining: 1000, Status: StatusPending}
	over.ApplyPayment(1500)
	require.Equal(t, StatusPaid, over.Status)
	require.Zero(t, over.Remaining)
}

func TestStatusAt(t *testing.T) {
	due := billingNow.Add(-24 * time.Hour)
	futureDue := billingNow.Add(24 * time.Hour)

	require.Equal(t, StatusOverdue, Invoice{Status: StatusPending, DueDate: &due}.StatusAt(billingNow))
	require.Equal(t, StatusOverdue, Invoice{Status: StatusPartial, DueDate: &due}.StatusAt(billingNow))
	require.Equal(t, StatusPending, Invoice{Status: StatusPending, DueDate: &futureDue}.StatusAt(billingNow))
	require.Equal(t, StatusPending, Invoice{Status: StatusPending}.StatusAt(billingNow))
	// A settled invoice never reports overdue.
	require.Equal(t, StatusPaid, Invoice{Status: StatusPaid, DueDate: &due}.StatusAt(billingNow))
}

func TestCreateInvoice(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newBillingService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Invoice{PatientID: "p1"})
	require.Error(t, err, "invoice without treatments must be rejected")

	_, err = svc.Create(ctx, Invoice{
		PatientID:  "p1",
		Treatments: []Treatment{{Name: "Cleaning", Quantity: 1, Price: 3000}},
		TaxPct:     150,
	})
	require.Error(t, err, "tax above 100 percent must be rejected")

	inv, err := svc.Create(ctx, Invoice{
		PatientID:   "p1",
		PatientName: "Grace Wanjiku",
		Treatments:  []Treatment{{Name: "Cleaning", Quantity: 1, Price: 3000}},
		DiscountPct: 10,
	})
	require.NoError(t, err)
	require.Regexp(t, `^INV-20250315-\d{4}$`, inv.InvoiceNumber)
	require.Equal(t, StatusPending, inv.Status)
	require.InDelta(t, 3000.0, inv.Subtotal, 1e-9)
	require.InDelta(t, 2700.0, inv.Total, 1e-9)
	require.InDelta(t, 2700.0, inv.Remaining, 1e-9)
}

func TestRecordPayment(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newBillingService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Invoice{
		PatientID:  "p1",
		Treatments: []Treatment{{Name: "Root canal", Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, created.ID, -5, "cash", "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.RecordPayment(ctx, "missing", 100, "cash", "")
	require.ErrorIs(t, err, ErrInvoiceNotFound)

	partial, err := svc.RecordPayment(ctx, created.ID, 400, "m-pesa", "deposit")
	require.NoError(t, err)
	require.Equal(t, StatusPartial, partial.Status)
	require.InDelta(t, 600.0, partial.Remaining, 1e-9)

	settled, err := svc.RecordPayment(ctx, created.ID, 600, "m-pesa", "")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, settled.Status)

	_, err = svc.RecordPayment(ctx, created.ID, 10, "cash", "")
	require.ErrorIs(t, err, ErrAlreadyPaid)

	_, payments, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.Equal(t, "m-pesa", payments[0].Method)
}

func TestUpdateRecomputesStatus(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newBillingService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Invoice{
		PatientID:  "p1",
		Treatments: []Treatment{{Name: "Filling", Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, created.ID, 1000, "cash", "")
	require.NoError(t, err)

	// Raising the total reopens the invoice as partial.
	created.Treatments = []Treatment{{Name: "Filling", Quantity: 2, Price: 1000}}
	updated, err := svc.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, updated.Status)
	require.InDelta(t, 1000.0, updated.Remaining, 1e-9)
}

func TestBillingStats(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc := newBillingService(repo)
	ctx := context.Background()

	thisMonth := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)
	repo.invoices["a"] = Invoice{ID: "a", Date: thisMonth, Total: 5000, PaidAmount: 5000, Remaining: 0, Status: StatusPaid}
	repo.invoices["b"] = Invoice{ID: "b", Date: thisMonth, Total: 3000, PaidAmount: 1000, Remaining: 2000, Status: StatusPartial}
	repo.invoices["c"] = Invoice{ID: "c", Date: lastMonth, Total: 4000, PaidAmount: 4000, Remaining: 0, Status: StatusPaid}
	repo.invoices["d"] = Invoice{ID: "d", Date: older, Total: 2000, PaidAmount: 2000, Remaining: 0, Status: StatusPaid}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.InDelta(t, 6000.0, stats.Revenue, 1e-9)
	require.InDelta(t, 50.0, stats.RevenueChange, 1e-9)
	require.InDelta(t, 2000.0, stats.Pending, 1e-9)
	require.Equal(t, 4, stats.InvoiceCount, "invoices older than the comparison window still count")
	require.InDelta(t, round2(12000.0/14000.0*100), stats.CollectionRate, 1e-9)
}
