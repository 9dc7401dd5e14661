package fxapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	BaseURL   string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.exchangerate.host"`
	AccessKey string        `envconfig:"ACCESS_KEY" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Client fetches spot FX rates from an apilayer-style /convert endpoint.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

// convertResponse covers both response shapes the API produces: info.rate on
// success, or success=false with an error block when the key is missing.
type convertResponse struct {
	Success *bool `json:"success"`
	Info    struct {
		Rate *float64 `json:"rate"`
	} `json:"info"`
	Result *float64 `json:"result"`
	Error  struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("fx api base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid fx api base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:   baseURL,
		accessKey: strings.TrimSpace(cfg.AccessKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Rate returns the base→quote conversion rate for one unit.
func (c *Client) Rate(ctx context.Context, base, quote string) (float64, error) {
	params := url.Values{}
	params.Set("from", strings.ToUpper(base))
	params.Set("to", strings.ToUpper(quote))
	params.Set("amount", "1")
	if c.accessKey != "" {
		params.Set("access_key", c.accessKey)
	}

	reqURL := c.baseURL + "/convert?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build fx request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute fx request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return 0, fmt.Errorf("read fx response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("fx http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed convertResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("decode fx response: %w", err)
	}

	if parsed.Success != nil && !*parsed.Success {
		log.Warn().
			Str("base", base).
			Str("quote", quote).
			Str("error_type", parsed.Error.Type).
			Msg("fx api rejected the request")
		return 0, fmt.Errorf("fx api error: %s (%s)", parsed.Error.Info, parsed.Error.Type)
	}
	if parsed.Info.Rate != nil {
		return *parsed.Info.Rate, nil
	}
	if parsed.Result != nil {
		return *parsed.Result, nil
	}
	return 0, errors.New("fx api returned no rate")
}
