package inventory

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memoryInventoryRepo struct {
	items        map[string]Item
	requisitions map[string]Requisition
	failAdjust   map[string]error
}

func newMemoryInventoryRepo() *memoryInventoryRepo {
	return &memoryInventoryRepo{
		items:        map[string]Item{},
		requisitions: map[string]Requisition{},
		failAdjust:   map[string]error{},
	}
}

func (m *memoryInventoryRepo) ListItems(_ context.Context, filters shared.ListFilters, _ time.Time, _ int) ([]Item, int, error) {
	var matched []Item
	for _, item := range m.items {
		if !filters.MatchesSearch(item.Name, item.Supplier) {
			continue
		}
		if filters.Category != "" && string(item.Category) != filters.Category {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched, len(matched), nil
}

func (m *memoryInventoryRepo) AllItems(context.Context) ([]Item, error) {
	items := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *memoryInventoryRepo) GetItem(_ context.Context, id string) (Item, error) {
	item, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (m *memoryInventoryRepo) CreateItem(_ context.Context, item Item) (Item, error) {
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryInventoryRepo) UpdateItem(_ context.Context, item Item) (Item, error) {
	if _, ok := m.items[item.ID]; !ok {
		return Item{}, ErrItemNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryInventoryRepo) DeleteItem(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryInventoryRepo) AdjustStock(_ context.Context, id string, delta int) (Item, error) {
	if err := m.failAdjust[id]; err != nil {
		return Item{}, err
	}
	item, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	item.CurrentStock += delta
	m.items[id] = item
	return item, nil
}

func (m *memoryInventoryRepo) ListRequisitions(_ context.Context, filters shared.ListFilters) ([]Requisition, int, error) {
	var matched []Requisition
	for _, req := range m.requisitions {
		if filters.Status != "" && string(req.Status) != filters.Status {
			continue
		}
		matched = append(matched, req)
	}
	return matched, len(matched), nil
}

func (m *memoryInventoryRepo) GetRequisition(_ context.Context, id string) (Requisition, error) {
	req, ok := m.requisitions[id]
	if !ok {
		return Requisition{}, ErrRequisitionNotFound
	}
	return req, nil
}

func (m *memoryInventoryRepo) CreateRequisition(_ context.Context, req Requisition) (Requisition, error) {
	m.requisitions[req.ID] = req
	return req, nil
}

func (m *memoryInventoryRepo) DecideRequisition(_ context.Context, id string, status RequisitionStatus, decidedBy string, decidedAt time.Time) error {
	req, ok := m.requisitions[id]
	if !ok {
		return ErrRequisitionNotFound
	}
	if req.Status != RequisitionPending {
		return ErrRequisitionDecided
	}
	req.Status = status
	req.DecidedBy = decidedBy
	req.DecidedAt = &decidedAt
	m.requisitions[id] = req
	return nil
}

func (m *memoryInventoryRepo) DeleteRequisition(_ context.Context, id string) error {
	if _, ok := m.requisitions[id]; !ok {
		return ErrRequisitionNotFound
	}
	delete(m.requisitions, id)
	return nil
}

func (m *memoryInventoryRepo) ItemCreationDates(_ context.Context, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	for _, item := range m.items {
		if !item.CreatedAt.Before(since) {
			dates = append(dates, item.CreatedAt)
		}
	}
	return dates, nil
}

type recordingNotifier struct {
	changed []string
}

func (n *recordingNotifier) StockChanged(itemID string) {
	n.changed = append(n.changed, itemID)
}

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, notifier StockChangeNotifier) *Service {
	svc := NewService(repo, nil, notifier, ServiceConfig{})
	svc.WithNow(func() time.Time { return testNow })
	return svc
}

func expiringAt(days int) *time.Time {
	t := testNow.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestItemStatusAt(t *testing.T) {
	cases := []struct {
		name string
		item Item
		want Status
	}{
		{"out of stock", Item{CurrentStock: 0, MinStock: 10}, StatusOut},
		{"at minimum is low", Item{CurrentStock: 10, MinStock: 10}, StatusLow},
		{"just above minimum", Item{CurrentStock: 11, MinStock: 10}, StatusGood},
		{"expired yesterday", Item{CurrentStock: 50, MinStock: 10, ExpiryDate: expiringAt(-1)}, StatusExpired},
		{"expiring at window edge", Item{CurrentStock: 50, MinStock: 10, ExpiryDate: expiringAt(90)}, StatusExpiring},
		{"beyond window", Item{CurrentStock: 50, MinStock: 10, ExpiryDate: expiringAt(91)}, StatusGood},
		{"no expiry date", Item{CurrentStock: 50, MinStock: 10}, StatusGood},
		{"stock check beats expiry", Item{CurrentStock: 2, MinStock: 10, ExpiryDate: expiringAt(-1)}, StatusLow},
		{"out beats everything", Item{CurrentStock: 0, MinStock: 10, ExpiryDate: expiringAt(-1)}, StatusOut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.item.StatusAt(testNow, DefaultExpiryWindowDays))
		})
	}
}

func TestCreateItemValidates(t *testing.T) {
	svc := newTestService(newMemoryInventoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, Item{Name: "", Category: CategoryHygiene})
	require.Error(t, err)

	_, err = svc.CreateItem(ctx, Item{Name: "Gloves", Category: Category("snacks")})
	require.Error(t, err)

	view, err := svc.CreateItem(ctx, Item{Name: "Gloves", Category: CategorySafety, CurrentStock: 100, MinStock: 20, UnitPrice: 12.50})
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	require.Equal(t, StatusGood, view.Status)
}

func TestRestock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)
	ctx := context.Background()

	repo.items["gloves"] = Item{ID: "gloves", Name: "Gloves", Category: CategorySafety, CurrentStock: 5, MinStock: 20}

	_, err := svc.Restock(ctx, "gloves", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Restock(ctx, "missing", 10)
	require.ErrorIs(t, err, ErrItemNotFound)

	view, err := svc.Restock(ctx, "gloves", 30)
	require.NoError(t, err)
	require.Equal(t, 35, view.CurrentStock)
	require.Equal(t, StatusGood, view.Status)
	require.Equal(t, []string{"gloves"}, notifier.changed)
}

func TestBulkRestockPartialFailure(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.items["a"] = Item{ID: "a", Name: "Anesthetic", Category: CategoryMedications, CurrentStock: 3, MinStock: 5}
	repo.items["b"] = Item{ID: "b", Name: "Burs", Category: CategoryInstruments, CurrentStock: 0, MinStock: 10}
	repo.failAdjust["b"] = errors.New("deadlock detected")

	results := svc.BulkRestock(ctx, []RestockRequest{
		{ItemID: "a", Quantity: 10},
		{ItemID: "b", Quantity: 20},
		{ItemID: "missing", Quantity: 5},
	})
	require.Len(t, results, 3)

	require.True(t, results[0].OK)
	require.Equal(t, 13, results[0].Stock)

	require.False(t, results[1].OK)
	require.Contains(t, results[1].Error, "deadlock")

	require.False(t, results[2].OK)

	// The failing item kept its original stock.
	require.Equal(t, 0, repo.items["b"].CurrentStock)
}

func TestRequisitionLifecycle(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo, nil)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: "u1", Name: "Dr. Achieng", Role: "admin"})

	_, err := svc.CreateRequisition(ctx, Requisition{RequestedBy: "Dr. Achieng"})
	require.Error(t, err, "requisition with no lines must be rejected")

	req, err := svc.CreateRequisition(ctx, Requisition{
		RequestedBy: "Dr. Achieng",
		Priority:    Priority("urgent-ish"),
		Lines:       []RequisitionLine{{Item: "Composite resin", Quantity: 12}},
	})
	require.NoError(t, err)
	require.Equal(t, RequisitionPending, req.Status)
	require.Equal(t, PriorityMedium, req.Priority, "unknown priority defaults to medium")
	require.Regexp(t, `^REQ-20250315-\d{4}$`, req.ReqNumber)

	approved, err := svc.ApproveRequisition(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, RequisitionApproved, approved.Status)
	require.Equal(t, "Dr. Achieng", approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)

	_, err = svc.RejectRequisition(ctx, req.ID)
	require.ErrorIs(t, err, ErrRequisitionDecided)
}

func TestScanAlerts(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.items["out"] = Item{ID: "out", Name: "Masks", Category: CategorySafety, CurrentStock: 0, MinStock: 10}
	repo.items["low"] = Item{ID: "low", Name: "Gauze", Category: CategoryHygiene, CurrentStock: 4, MinStock: 5}
	repo.items["fine"] = Item{ID: "fine", Name: "Floss", Category: CategoryHygiene, CurrentStock: 80, MinStock: 10}
	repo.items["expiring"] = Item{ID: "expiring", Name: "Lidocaine", Category: CategoryMedications, CurrentStock: 30, MinStock: 5, ExpiryDate: expiringAt(10)}

	alerts, err := svc.ScanAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	names := []string{alerts[0].Name, alerts[1].Name}
	require.ElementsMatch(t, []string{"Masks", "Gauze"}, names)
}

func TestStats(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	thisMonth := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)

	repo.items["a"] = Item{ID: "a", Name: "Gloves", Category: CategorySafety, CurrentStock: 100, MinStock: 20, UnitPrice: 10, CreatedAt: thisMonth}
	repo.items["b"] = Item{ID: "b", Name: "Gauze", Category: CategoryHygiene, CurrentStock: 2, MinStock: 5, UnitPrice: 50, CreatedAt: lastMonth}
	repo.items["c"] = Item{ID: "c", Name: "Masks", Category: CategorySafety, CurrentStock: 0, MinStock: 10, UnitPrice: 5, CreatedAt: lastMonth}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalItems)
	require.InDelta(t, 1100.0, stats.StockValue, 1e-9)
	require.Equal(t, 1, stats.LowStockCount)
	require.Equal(t, 1, stats.OutOfStockCount)
	require.Equal(t, 0, stats.ExpiringSoon)
	// One item created this month against two last month.
	require.InDelta(t, -50.0, stats.TotalItemsChange, 1e-9)
}
