// Package monitor manages external change-detection subscriptions ("scouts") that call
// back into the webhook endpoint when a product page changes.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WebhookPath is where scouts deliver change notifications.
const WebhookPath = "/webhooks/monitor"

// Scout is a monitor as reported by the scouting API.
type Scout struct {
	ID       string `json:"id"`
	StartURL string `json:"start_url,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Monitor creates and removes change-detection subscriptions.
type Monitor interface {
	Create(ctx context.Context, url, name string) (string, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Scout, error)
}

// ClientOptions parameterise the scouting API client.
type ClientOptions struct {
	BaseURL        string
	APIKey         string
	WebhookBaseURL string
	Schedule       string
	Timeout        time.Duration
}

// Client talks to the hosted scouting API.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a scouting API client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.yutori.com/v1"
	}
	if opts.Schedule == "" {
		opts.Schedule = "hourly"
	}
	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "monitor_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Create registers a scout watching url and returns its id.
func (c *Client) Create(ctx context.Context, url, name string) (string, error) {
	payload := createRequest{
		Query:      fmt.Sprintf("Monitor this product page for price changes, stock updates, and availability. Product: %s. Report any changes to price, stock status, or availability.", name),
		StartURL:   url,
		WebhookURL: strings.TrimRight(c.opts.WebhookBaseURL, "/") + WebhookPath,
		Schedule:   c.opts.Schedule,
	}

	var res struct {
		ID      string `json:"id"`
		ScoutID string `json:"scout_id"`
		TaskID  string `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/scouting/tasks", payload, &res); err != nil {
		return "", fmt.Errorf("create scout: %w", err)
	}

	for _, id := range []string{res.ID, res.ScoutID, res.TaskID} {
		if id != "" {
			c.logger.Info().Str("scout_id", id).Str("url", url).Msg("scout created")
			return id, nil
		}
	}
	return "", errors.New("create scout: response carried no id")
}

// Delete removes a scout.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/scouting/tasks/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete scout %s: %w", id, err)
	}
	return nil
}

// List returns every scout on the account; it doubles as a credentials check.
func (c *Client) List(ctx context.Context) ([]Scout, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/scouting/tasks", nil, &raw); err != nil {
		return nil, fmt.Errorf("list scouts: %w", err)
	}

	var wrapped struct {
		Scouts []Scout `json:"scouts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Scouts != nil {
		return wrapped.Scouts, nil
	}
	var scouts []Scout
	if err := json.Unmarshal(raw, &scouts); err != nil {
		return nil, fmt.Errorf("decode scouts: %w", err)
	}
	return scouts, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.opts.APIKey == "" {
		return errors.New("monitor api key not configured")
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(payload))
		if msg == "" {
			return fmt.Errorf("scouting api error (%d)", resp.StatusCode)
		}
		return fmt.Errorf("scouting api error (%d): %s", resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

type createRequest struct {
	Query      string `json:"query"`
	StartURL   string `json:"start_url"`
	WebhookURL string `json:"webhook_url"`
	Schedule   string `json:"schedule"`
}

var _ Monitor = (*Client)(nil)
