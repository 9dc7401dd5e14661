package interpret

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestInterpretSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "```json\n{\"target_currency\":\"eur\",\"items\":[{\"sku\":\" Laptop \",\"quantity\":10}]}\n```"},
		},
	}
	interp, err := New(fake, "interpreter prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req, err := interp.Interpret(context.Background(), nil, "buy 10 laptops, totals in EUR")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if req.TargetCurrency != "EUR" {
		t.Fatalf("currency must be uppercased, got %s", req.TargetCurrency)
	}
	if len(req.Items) != 1 || req.Items[0].SKU != "laptop" || req.Items[0].Quantity != 10 {
		t.Fatalf("unexpected items: %#v", req.Items)
	}
}

func TestInterpretFoldsDuplicateSKUs(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"target_currency":"USD","items":[{"sku":"mug","quantity":2},{"sku":"tee","quantity":1},{"sku":"MUG","quantity":3}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	req, err := interp.Interpret(context.Background(), nil, "2 mugs, a tee, 3 more mugs")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if len(req.Items) != 2 {
		t.Fatalf("duplicates must fold, got %#v", req.Items)
	}
	if req.Items[0].SKU != "mug" || req.Items[0].Quantity != 5 {
		t.Fatalf("folded quantity wrong: %#v", req.Items[0])
	}
	if req.Items[1].SKU != "tee" {
		t.Fatalf("first-mention order must be preserved: %#v", req.Items)
	}
}

func TestInterpretRetriesOnceOnBadOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "sure, here is your order!"},
			{Content: `{"target_currency":"USD","items":[{"sku":"hoodie","quantity":4}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	req, err := interp.Interpret(context.Background(), nil, "4 hoodies")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if len(req.Items) != 1 || req.Items[0].Quantity != 4 {
		t.Fatalf("unexpected items after retry: %#v", req.Items)
	}
	if len(fake.inputs) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(fake.inputs))
	}
	retry := fake.inputs[1]
	last := retry[len(retry)-1]
	if last.Role != schema.User {
		t.Fatalf("corrective message must be a user turn, got %s", last.Role)
	}
}

func TestInterpretFailsAfterRetry(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: "not json"},
			{Content: `{"items":[{"sku":"hoodie","quantity":1}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	_, err := interp.Interpret(context.Background(), nil, "a hoodie")
	if !errors.Is(err, contractx.ErrInterpretation) {
		t.Fatalf("expected ErrInterpretation, got %v", err)
	}
}

func TestInterpretRejectsInvalidQuantity(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"target_currency":"USD","items":[{"sku":"mug","quantity":0}]}`},
			{Content: `{"target_currency":"USD","items":[{"sku":"mug","quantity":-2}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	_, err := interp.Interpret(context.Background(), nil, "some mugs")
	if !errors.Is(err, contractx.ErrInterpretation) {
		t.Fatalf("expected ErrInterpretation, got %v", err)
	}
}

func TestInterpretDropsFabricatedWebhook(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"target_currency":"USD","webhook_url":"https://evil.example/hook","items":[{"sku":"mug","quantity":1}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	req, err := interp.Interpret(context.Background(), nil, "one mug please")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if req.WebhookURL != "" {
		t.Fatalf("webhook not present in conversation must be dropped, got %q", req.WebhookURL)
	}
}

func TestInterpretKeepsWebhookFromPrior(t *testing.T) {
	t.Parallel()

	prior := &contractx.ProcurementRequest{
		TargetCurrency: "USD",
		WebhookURL:     "https://hooks.example/p1",
		Items:          []contractx.LineItem{{SKU: "mug", Quantity: 1}},
	}
	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"target_currency":"USD","webhook_url":"https://hooks.example/p1","items":[{"sku":"mug","quantity":2}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	req, err := interp.Interpret(context.Background(), prior, "make it two mugs")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if req.WebhookURL != "https://hooks.example/p1" {
		t.Fatalf("webhook carried over from prior must survive, got %q", req.WebhookURL)
	}
}

func TestInterpretRevertsUnmentionedCurrencyChange(t *testing.T) {
	t.Parallel()

	prior := &contractx.ProcurementRequest{
		TargetCurrency: "EUR",
		Items:          []contractx.LineItem{{SKU: "laptop", Quantity: 10}},
	}
	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"target_currency":"USD","items":[{"sku":"laptop","quantity":10},{"sku":"monitor","quantity":5}]}`},
		},
	}
	interp, _ := New(fake, "interpreter prompt")

	req, err := interp.Interpret(context.Background(), prior, "also 5 monitors")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if req.TargetCurrency != "EUR" {
		t.Fatalf("currency change the user never mentioned must revert, got %s", req.TargetCurrency)
	}
}

func TestInterpretEmptyMessage(t *testing.T) {
	t.Parallel()

	interp, _ := New(&fakeChatModel{}, "interpreter prompt")
	if _, err := interp.Interpret(context.Background(), nil, "   "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, "prompt"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil model, got %v", err)
	}
	if _, err := New(&fakeChatModel{}, "  "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank prompt, got %v", err)
	}
}
