package fakestore

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
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://fakestoreapi.com"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Client quotes line items against the public FakeStore catalog. It is the
// secondary supplier tier: no auth, best-effort text matching.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Product struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("fakestore base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid fakestore base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Products fetches the full catalog listing.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, fmt.Errorf("build fakestore request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute fakestore request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read fakestore response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fakestore http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode fakestore response: %w", err)
	}
	return products, nil
}

// BestMatch scores products against a search query: full-query hits on title
// and category weigh most, then per-word hits. Returns the first product when
// nothing scores, so a non-empty catalog always yields a candidate.
func BestMatch(products []Product, query string) *Product {
	if len(products) == 0 {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return &products[0]
	}

	var best *Product
	bestScore := 0.0

	for i := range products {
		p := &products[i]
		title := strings.ToLower(p.Title)
		category := strings.ToLower(p.Category)

		score := 0.0
		if strings.Contains(title, q) {
			score += 3.0
		}
		if strings.Contains(category, q) {
			score += 2.0
		}
		for _, word := range strings.Fields(q) {
			if strings.Contains(title, word) {
				score += 1.0
			}
			if strings.Contains(category, word) {
				score += 0.5
			}
		}

		if score > bestScore {
			bestScore = score
			best = p
		}
	}

	if best == nil {
		return &products[0]
	}
	return best
}
