package jobs

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/novadent/novadent/internal/inventory"
	jobmetrics "github.com/novadent/novadent/internal/jobs"
	"github.com/novadent/novadent/internal/sms"
)

// AlertScanner is the slice of the inventory service the scan needs.
type AlertScanner interface {
	ScanAlerts(ctx context.Context) ([]inventory.ItemView, error)
}

// LowStockScanner processes inventory:lowstock tasks by scanning stock
// levels and texting the clinic's alert line when items run low or out.
type LowStockScanner struct {
	scanner    AlertScanner
	sender     *sms.Service
	alertPhone string
	logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewLowStockScanner constructs the handler. With an empty alertPhone the
// scan only logs.
func NewLowStockScanner(scanner AlertScanner, sender *sms.Service, alertPhone string, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{scanner: scanner, sender: sender, alertPhone: alertPhone, logger: logger}
}

func (h *LowStockScanner) metrics() *jobmetrics.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return defaultJobMetrics
}

// Handle runs one scan.
func (h *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := h.metrics().Track(TaskInventoryLowStock)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	alerts, err := h.scanner.ScanAlerts(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		h.logger.Info("low stock scan clean")
		return nil
	}
	h.logger.Warn("low stock scan", slog.Int("alerts", len(alerts)))
	if h.alertPhone == "" || h.sender == nil {
		return nil
	}
	if _, err := h.sender.Send(ctx, h.alertPhone, alertBody(alerts), "", nil); err != nil {
		return err
	}
	return nil
}

func alertBody(alerts []inventory.ItemView) string {
	var b strings.Builder
	b.WriteString("Stock alert: ")
	// Cap the list so the message stays within a few SMS segments.
	const maxListed = 5
	for i, alert := range alerts {
		if i == maxListed {
			b.WriteString(" and " + strconv.Itoa(len(alerts)-maxListed) + " more")
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(alert.Name + " (" + strconv.Itoa(alert.CurrentStock) + " left)")
	}
	if estimate := restockEstimate(alerts); estimate > 0 {
		b.WriteString(". Restock estimate " + sms.FormatAmount(estimate))
	}
	return b.String()
}

// restockEstimate prices the shortfall of every alerted item back up to its
// minimum level.
func restockEstimate(alerts []inventory.ItemView) float64 {
	var total float64
	for _, alert := range alerts {
		if short := alert.MinStock - alert.CurrentStock; short > 0 {
			total += float64(short) * alert.UnitPrice
		}
	}
	return total
}
