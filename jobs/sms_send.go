package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/novadent/novadent/internal/jobs"
	"github.com/novadent/novadent/internal/sms"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SMSSender processes sms:send tasks by pushing the referenced outbox
// message through the gateway.
type SMSSender struct {
	service *sms.Service
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSMSSender constructs the handler.
func NewSMSSender(service *sms.Service, logger *slog.Logger) *SMSSender {
	return &SMSSender{service: service, logger: logger}
}

func (h *SMSSender) metrics() *jobmetrics.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return defaultJobMetrics
}

// Handle delivers one message. Malformed payloads are dropped; gateway
// failures are returned so Asynq retries with backoff.
func (h *SMSSender) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := h.metrics().Track(TaskSMSSend)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var payload SMSSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	msg, err := h.service.Deliver(ctx, payload.MessageID)
	if err != nil {
		h.logger.Warn("sms delivery failed",
			slog.String("message_id", payload.MessageID),
			slog.Any("error", err))
		return err
	}
	h.logger.Info("sms delivered",
		slog.String("message_id", msg.ID),
		slog.String("recipient", msg.Recipient))
	return nil
}
