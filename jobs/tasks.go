// Package jobs defines the background task types and the Asynq worker that
// processes them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSMSSend delivers one queued outbox message through the gateway.
	TaskSMSSend = "sms:send"
	// TaskAppointmentsRemind queues reminder messages for tomorrow's
	// appointments. Registered on a daily cron.
	TaskAppointmentsRemind = "appointments:remind"
	// TaskInventoryLowStock scans stock levels and alerts the clinic when
	// items run low. Enqueued by the debounced stock-change watcher and a
	// nightly cron.
	TaskInventoryLowStock = "inventory:lowstock"
)

// SMSSendPayload identifies the outbox message to deliver.
type SMSSendPayload struct {
	MessageID string `json:"message_id"`
}

// NewSMSSendTask constructs an sms:send task.
func NewSMSSendTask(payload SMSSendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSMSSend, data), nil
}

// NewAppointmentsRemindTask constructs an appointments:remind task.
func NewAppointmentsRemindTask() *asynq.Task {
	return asynq.NewTask(TaskAppointmentsRemind, nil)
}

// NewInventoryLowStockTask constructs an inventory:lowstock task.
func NewInventoryLowStockTask() *asynq.Task {
	return asynq.NewTask(TaskInventoryLowStock, nil)
}
