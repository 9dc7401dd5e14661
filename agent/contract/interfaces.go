package contract

import "context"

// Interpreter merges a user message into the prior structured request.
type Interpreter interface {
	Interpret(ctx context.Context, prior *ProcurementRequest, rawText string) (ProcurementRequest, error)
}

// Sourcer resolves offers for a batch of line items. Degraded outcomes are
// reported inside SourcingResult, not as errors; the error return is for
// context cancellation and internal failures only.
type Sourcer interface {
	Source(ctx context.Context, items []LineItem) (SourcingResult, error)
}

// Converter normalizes an amount into another currency. It never fails: a
// best-effort result is always produced, with provenance in the result.
type Converter interface {
	Normalize(ctx context.Context, amount float64, base, quote string) ConversionResult
}

// Notifier delivers a JSON payload to a webhook. Failures are captured in the
// outcome, never returned as errors.
type Notifier interface {
	Send(ctx context.Context, url string, payload any) NotifyOutcome
}
