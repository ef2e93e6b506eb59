// Package httpapi implements ports.Aggregator against the upstream SMS
// aggregator's batch send endpoint.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"
)

// Config holds the aggregator endpoint and its Basic-Auth credentials.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// Client implements ports.Aggregator over HTTP. Every failure mode
// (transport error, non-2xx status, malformed body) is normalized into
// a rejected BatchResult so the processor's batch-failure path never
// sees a raw error.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Client targeting the configured aggregator.
func New(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type sendRequest struct {
	SourceAddr string          `json:"source_addr"`
	Message    string          `json:"message"`
	Recipients []sendRecipient `json:"recipients"`
}

type sendRecipient struct {
	RecipientID string `json:"recipient_id"`
	DestAddr    string `json:"dest_addr"`
}

type sendResponse struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

// Send posts one batch to the aggregator's /sms/send endpoint and maps
// the response to an accept/reject verdict.
func (c *Client) Send(ctx context.Context, senderID, message string, batch []domain.Recipient) ports.BatchResult {
	payload := sendRequest{
		SourceAddr: senderID,
		Message:    message,
		Recipients: make([]sendRecipient, 0, len(batch)),
	}
	for _, r := range batch {
		payload.Recipients = append(payload.Recipients, sendRecipient{
			RecipientID: r.ID.String(),
			DestAddr:    r.DestAddr,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ports.Rejected(fmt.Sprintf("marshal send request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/sms/send", bytes.NewReader(body))
	if err != nil {
		return ports.Rejected(fmt.Sprintf("build send request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("aggregator transport failure", "err", err, "batch_size", len(batch))
		return ports.Rejected(fmt.Sprintf("transport error: %v", err))
	}
	defer resp.Body.Close()

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return ports.Rejected(fmt.Sprintf("malformed aggregator response (status %d)", resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := sr.Message
		if reason == "" {
			reason = fmt.Sprintf("aggregator returned status %d", resp.StatusCode)
		}
		return ports.Rejected(reason)
	}

	if sr.RequestID == "" {
		return ports.Rejected("aggregator response missing request_id")
	}

	return ports.Accepted(sr.RequestID)
}
