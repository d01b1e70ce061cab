// Package source acquires the current observed record set from the loan
// tracking portal's JSON export endpoint.
//
// The client is caller-owned with an explicit lifecycle: the orchestrating
// command constructs one per cycle and releases it when the cycle ends.
// There is no package-level connection state.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/roach88/loanwatch/internal/record"
)

// Config holds the export endpoint settings.
type Config struct {
	// URL is the full export endpoint URL.
	URL string

	// Token is the bearer token for the portal API, if required.
	Token string

	// Timeout bounds the whole fetch. Zero means 30s.
	Timeout time.Duration
}

// Client fetches the observed record set over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
}

// New validates the config and builds a client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("source: endpoint URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("source: invalid endpoint URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}, nil
}

// Close releases the client's idle connections. Call at cycle end.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// application is the portal export row shape. Optional fields are pointers:
// the portal omits or nulls fields it failed to render, and an absent field
// must decode as null, not as a zero.
type application struct {
	Email            string  `json:"email"`
	Tab              string  `json:"tab"`
	Status           string  `json:"status"`
	RequestedCents   *int64  `json:"requested_amount_cents"`
	ApprovedCents    *int64  `json:"approved_amount_cents"`
	MaxApprovedCents *int64  `json:"max_approved_amount_cents"`
	Notes            *string `json:"notes"`
	LossReason       *string `json:"loss_reason"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type exportPayload struct {
	Applications []application `json:"applications"`
}

// Fetch retrieves and decodes the full export.
//
// Whole-response-or-error: any transport, status, or decode failure returns
// an error and no records. A truncated set must never reach the reconciler,
// where it would read as mass disappearance.
func (c *Client) Fetch(ctx context.Context) ([]record.Observed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: export returned %s", resp.Status)
	}

	var payload exportPayload
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("source: decode export: %w", err)
	}

	observed := make([]record.Observed, 0, len(payload.Applications))
	for i, app := range payload.Applications {
		rec, err := app.toObserved()
		if err != nil {
			return nil, fmt.Errorf("source: row %d: %w", i, err)
		}
		observed = append(observed, rec)
	}
	return observed, nil
}

func (a application) toObserved() (record.Observed, error) {
	key := record.NormalizeKey(a.Email)
	if key == "" {
		return record.Observed{}, fmt.Errorf("application without email")
	}

	obs := record.Observed{
		Key:    key,
		Stage:  a.Tab,
		Status: a.Status,
	}
	if a.RequestedCents != nil {
		obs.RequestedAmount = record.Cents(*a.RequestedCents)
	}
	if a.ApprovedCents != nil {
		obs.ApprovedAmount = record.Cents(*a.ApprovedCents)
	}
	if a.MaxApprovedCents != nil {
		obs.MaxApprovedAmount = record.Cents(*a.MaxApprovedCents)
	}
	if a.Notes != nil {
		obs.Notes = record.String(*a.Notes)
	}
	if a.LossReason != nil {
		obs.LossReason = record.String(*a.LossReason)
	}

	var err error
	if obs.SourceCreatedAt, err = parseTime(a.CreatedAt); err != nil {
		return record.Observed{}, err
	}
	if obs.SourceUpdatedAt, err = parseTime(a.UpdatedAt); err != nil {
		return record.Observed{}, err
	}
	return obs, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
