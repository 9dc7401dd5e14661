package plan

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// Assemble builds the canonical plan from sourcing and conversion results.
// Pure and deterministic: identical inputs produce identical plans; the
// caller stamps the plan ID afterwards.
func Assemble(
	request contractx.ProcurementRequest,
	sourcing contractx.SourcingResult,
	conversion *contractx.ConversionResult,
) contractx.ProcurementPlan {
	warnings := []string{}

	if len(sourcing.UnavailableSKUs) > 0 {
		skus := append([]string(nil), sourcing.UnavailableSKUs...)
		sort.Strings(skus)
		warnings = append(warnings, fmt.Sprintf("no offers found for: %s", strings.Join(skus, ", ")))
	}

	if conversion != nil && conversion.FallbackUsed {
		warnings = append(warnings, fmt.Sprintf("currency conversion %s->%s used a static fallback rate (%.4f)", conversion.Base, conversion.Quote, conversion.Rate))
	}

	if request.Budget != nil {
		total := sourcing.TotalCost
		currency := sourcing.Currency
		if conversion != nil {
			total = conversion.AmountQuote
			currency = conversion.Quote
		}
		if total > *request.Budget {
			warnings = append(warnings, fmt.Sprintf("estimated total %.2f %s exceeds stated budget %.2f", total, currency, *request.Budget))
		}
	}

	return contractx.ProcurementPlan{
		Request:    request,
		Sourcing:   sourcing,
		Conversion: conversion,
		Warnings:   warnings,
	}
}

// WithNotification returns a copy of plan carrying the webhook outcome. A
// failed delivery adds a warning but never invalidates the plan.
func WithNotification(p contractx.ProcurementPlan, outcome *contractx.NotifyOutcome) contractx.ProcurementPlan {
	if outcome == nil {
		return p
	}
	p.Notified = outcome
	if !outcome.OK {
		p.Warnings = append(append([]string{}, p.Warnings...),
			fmt.Sprintf("webhook delivery failed with status %d", outcome.StatusCode))
	}
	return p
}

// WithWarning returns a copy of plan with one warning appended.
func WithWarning(p contractx.ProcurementPlan, warning string) contractx.ProcurementPlan {
	p.Warnings = append(append([]string{}, p.Warnings...), warning)
	return p
}
