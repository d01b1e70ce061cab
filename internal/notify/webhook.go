// Package notify delivers change notifications to a webhook.
//
// The webhook owns formatting and transport; the caller hands it the
// delivery-eligible events and nothing else. Delivery is at-least-once: a
// cycle that fails after delivery re-detects the same changes next time, so
// the receiving end must tolerate a repeated digest.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roach88/loanwatch/internal/change"
)

// Config holds webhook settings.
type Config struct {
	// URL is the webhook endpoint. Empty disables delivery (events are
	// logged by the caller but not sent anywhere).
	URL string

	// Timeout bounds one delivery. Zero means 10s.
	Timeout time.Duration
}

// Webhook posts one digest message per cycle as a Slack-compatible JSON
// payload. Caller-owned; construct per cycle and Close when done.
type Webhook struct {
	cfg    Config
	client *http.Client
}

// NewWebhook builds a webhook sink.
func NewWebhook(cfg Config) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("notify: webhook URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{cfg: cfg, client: &http.Client{Timeout: timeout}}, nil
}

// Close releases idle connections.
func (w *Webhook) Close() {
	w.client.CloseIdleConnections()
}

// Deliver posts the digest for this cycle's events. A non-2xx response is
// an error; the caller aborts the cycle rather than advancing the baseline
// past undelivered changes.
func (w *Webhook) Deliver(ctx context.Context, events []change.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Digest text carries "->" and literal ampersands from stage labels;
	// HTML escaping would mangle both in the delivered message.
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{"text": FormatDigest(events)}); err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, &body)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}
