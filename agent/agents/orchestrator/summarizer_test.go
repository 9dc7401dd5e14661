package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	openrouterx "github.com/merchkit/procurement-agent/pkg/openrouter"
)

func summaryPlan() contractx.ProcurementPlan {
	return contractx.ProcurementPlan{
		ID: "p1",
		Request: contractx.ProcurementRequest{
			TargetCurrency: "EUR",
			Items:          []contractx.LineItem{{SKU: "laptop", Quantity: 10}},
		},
		Sourcing: contractx.SourcingResult{
			Offers: map[string]contractx.Offer{
				"laptop": {Supplier: "fakestore", SKU: "laptop", UnitPrice: 450, Currency: "USD", Available: true},
			},
			UnavailableSKUs: []string{},
			TotalCost:       4500,
			Currency:        "USD",
			ProviderTier:    contractx.TierSecondary,
		},
		Warnings: []string{},
	}
}

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openaisdk.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return NewSummarizer(&client, openrouterx.Config{Model: "test-model", Temperature: 0.2}, "summarizer prompt")
}

func TestSummarizeUsesCompletion(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "finish_reason": "stop",
				 "message": {"role": "assistant", "content": "Ten laptops for about 4500 USD."}}
			]
		}`))
	})

	got := s.Summarize(context.Background(), summaryPlan())
	if got != "Ten laptops for about 4500 USD." {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestSummarizeModelFailureFallsBackToRendering(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	got := s.Summarize(context.Background(), summaryPlan())
	if !strings.Contains(got, "laptop x10") || !strings.Contains(got, "4500.00 USD") {
		t.Fatalf("fallback must render the plan, got %q", got)
	}
}

func TestSummarizeEmptyChoicesFallsBack(t *testing.T) {
	t.Parallel()

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "cmpl-2", "object": "chat.completion", "choices": []}`))
	})

	got := s.Summarize(context.Background(), summaryPlan())
	if !strings.Contains(got, "Procurement plan") {
		t.Fatalf("empty choices must fall back, got %q", got)
	}
}

func TestSummarizeWithoutClient(t *testing.T) {
	t.Parallel()

	s := NewSummarizer(nil, openrouterx.Config{Model: "test-model"}, "summarizer prompt")
	got := s.Summarize(context.Background(), summaryPlan())
	if !strings.Contains(got, "Total: 4500.00 USD") {
		t.Fatalf("missing client must fall back to rendering, got %q", got)
	}
}
