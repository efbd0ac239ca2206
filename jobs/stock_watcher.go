package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/novadent/novadent/internal/shared"
)

// ScanEnqueuer queues a low-stock scan. Implemented by Client.
type ScanEnqueuer interface {
	EnqueueLowStockScan(ctx context.Context) error
}

// StockWatcher implements inventory.StockChangeNotifier. Stock mutations
// arrive in bursts, a bulk restock touches dozens of items, so the watcher
// debounces before enqueueing a single scan.
type StockWatcher struct {
	debouncer *shared.Debouncer
	logger    *slog.Logger
}

// NewStockWatcher constructs the watcher. wait is the quiet period after
// the last mutation before a scan is queued.
func NewStockWatcher(enqueuer ScanEnqueuer, wait time.Duration, logger *slog.Logger) *StockWatcher {
	w := &StockWatcher{logger: logger}
	w.debouncer = shared.NewDebouncer(wait, func(string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := enqueuer.EnqueueLowStockScan(ctx); err != nil {
			logger.Warn("low stock scan not queued", slog.Any("error", err))
		}
	})
	return w
}

// StockChanged notes one mutation. The scan fires once the burst settles.
func (w *StockWatcher) StockChanged(itemID string) {
	w.debouncer.Trigger(itemID)
}

// Stop cancels any pending scan trigger.
func (w *StockWatcher) Stop() {
	w.debouncer.Stop()
}
