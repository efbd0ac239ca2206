// Package sms sends patient notifications through an external SMS gateway
// and keeps an outbox of every message.
package sms

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Status tracks a message through the gateway.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Message is one outbound SMS.
type Message struct {
	ID          string     `json:"id"`
	Recipient   string     `json:"recipient"`
	Body        string     `json:"body"`
	TemplateID  string     `json:"template_id,omitempty"`
	Status      Status     `json:"status"`
	GatewayID   string     `json:"gateway_id,omitempty"`
	Cost        float64    `json:"cost"`
	FailureNote string     `json:"failure_note,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Template is a reusable message body with {placeholder} slots. UsageCount
// tracks how often the template has backed an outgoing message.
type Template struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category,omitempty"`
	Body       string    `json:"body"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Render substitutes {key} placeholders in the template body. Unknown
// placeholders are left in place so a bad merge is visible rather than
// silently dropped.
func (t Template) Render(vars map[string]string) string {
	out := t.Body
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}

var kesPrinter = message.NewPrinter(language.English)

// FormatAmount renders a shilling amount with digit grouping for message
// bodies, e.g. "KES 12,500".
func FormatAmount(amount float64) string {
	return kesPrinter.Sprintf("KES %v", number.Decimal(amount, number.MaxFractionDigits(2)))
}

// SendResult reports the outcome for one recipient of a bulk send.
type SendResult struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id,omitempty"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

var (
	// ErrMessageNotFound indicates a missing outbox message.
	ErrMessageNotFound = errors.New("sms: message not found")
	// ErrTemplateNotFound indicates a missing template.
	ErrTemplateNotFound = errors.New("sms: template not found")
	// ErrEmptyBody rejects sending a blank message.
	ErrEmptyBody = errors.New("sms: message body is empty")
	// ErrNoRecipient rejects sending without a phone number.
	ErrNoRecipient = errors.New("sms: recipient is required")
)
