package printful

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	APIBase string        `envconfig:"API_BASE" split_words:"true" default:"https://api.printful.com"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Enabled bool          `envconfig:"ENABLED" split_words:"true" default:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Client searches the Printful catalog. It is the primary supplier tier;
// construction fails only on a malformed base URL, a missing key just means
// the client reports itself disabled.
type Client struct {
	baseURL    string
	apiKey     string
	enabled    bool
	httpClient *http.Client
}

type Product struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type Variant struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type productsResponse struct {
	Result []Product `json:"result"`
}

type productDetailResponse struct {
	Result struct {
		Variants []Variant `json:"variants"`
	} `json:"result"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if baseURL == "" {
		return nil, errors.New("printful api base is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid printful api base: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		enabled: cfg.Enabled && strings.TrimSpace(cfg.APIKey) != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Enabled reports whether the client is configured for real calls.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// FirstVariantPrice finds the best catalog product for query and returns its
// first variant's unit price and name.
func (c *Client) FirstVariantPrice(ctx context.Context, query string) (price float64, description string, err error) {
	if !c.Enabled() {
		return 0, "", errors.New("printful client is disabled")
	}

	var products productsResponse
	searchURL := fmt.Sprintf("%s/catalog/products?search=%s&limit=1", c.baseURL, url.QueryEscape(query))
	if err := c.getJSON(ctx, searchURL, &products); err != nil {
		return 0, "", err
	}
	if len(products.Result) == 0 {
		return 0, "", fmt.Errorf("no printful products for query %q", query)
	}

	var detail productDetailResponse
	detailURL := fmt.Sprintf("%s/catalog/products/%d", c.baseURL, products.Result[0].ID)
	if err := c.getJSON(ctx, detailURL, &detail); err != nil {
		return 0, "", err
	}
	if len(detail.Result.Variants) == 0 {
		return 0, "", fmt.Errorf("no printful variants for query %q", query)
	}

	variant := detail.Result.Variants[0]
	parsed, err := strconv.ParseFloat(strings.TrimSpace(variant.Price), 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse printful variant price %q: %w", variant.Price, err)
	}
	return parsed, variant.Name, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build printful request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute printful request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read printful response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("printful http status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode printful response: %w", err)
	}
	return nil
}
