package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Receipt is the provider's acknowledgement for one accepted message.
type Receipt struct {
	GatewayID string
	Cost      float64
}

// Gateway delivers a message to a phone network and returns the provider's
// receipt.
type Gateway interface {
	Send(ctx context.Context, recipient, body string) (Receipt, error)
}

// Client wraps interactions with the Africa's Talking messaging API.
type Client struct {
	baseURL    string
	apiKey     string
	username   string
	senderID   string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, apiKey, username, senderID string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		username: username,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendResponse struct {
	SMSMessageData struct {
		Recipients []struct {
			Number    string `json:"number"`
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
			Cost      string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send submits one message. The API accepts form-encoded requests and
// reports per-recipient status and cost in the response body.
func (c *Client) Send(ctx context.Context, recipient, body string) (Receipt, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("to", recipient)
	form.Set("message", body)
	if c.senderID != "" {
		form.Set("from", c.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/version1/messaging", c.baseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return Receipt{}, fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Receipt{}, fmt.Errorf("sms gateway: decode response: %w", err)
	}
	recipients := decoded.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return Receipt{}, fmt.Errorf("sms gateway accepted no recipients")
	}
	first := recipients[0]
	if !strings.EqualFold(first.Status, "Success") {
		return Receipt{}, fmt.Errorf("sms gateway rejected %s: %s", first.Number, first.Status)
	}
	return Receipt{GatewayID: first.MessageID, Cost: parseCost(first.Cost)}, nil
}

// parseCost extracts the numeric part of a provider cost like "KES 0.8000".
// Unparseable values count as zero rather than failing a delivered send.
func parseCost(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0
	}
	return v
}
