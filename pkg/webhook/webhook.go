package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client posts JSON payloads to caller-supplied webhook URLs.
type Client struct {
	httpClient *http.Client
}

// Result is the raw delivery outcome, including any JSON body the receiver
// returned.
type Result struct {
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	OK         bool            `json:"ok"`
	Body       json.RawMessage `json:"body,omitempty"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends payload as JSON to rawURL. A non-2xx status is not an error;
// only transport and encoding failures are.
func (c *Client) Post(ctx context.Context, rawURL string, payload any) (*Result, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, errors.New("webhook url is empty")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, trimmed, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	result := &Result{
		URL:        trimmed,
		StatusCode: resp.StatusCode,
		OK:         resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
	}
	if json.Valid(raw) {
		result.Body = json.RawMessage(raw)
	}
	return result, nil
}
