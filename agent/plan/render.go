package plan

import (
	"fmt"
	"strings"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// RenderText produces a plain human-readable account of the plan. Used as
// the summary of last resort when the model-written summary is unavailable.
func RenderText(p contractx.ProcurementPlan) string {
	var b strings.Builder

	b.WriteString("Procurement plan\n")
	for _, item := range p.Request.Items {
		offer, ok := p.Sourcing.Offers[item.SKU]
		if !ok {
			fmt.Fprintf(&b, "- %s x%d: no offer available\n", item.SKU, item.Quantity)
			continue
		}
		fmt.Fprintf(&b, "- %s x%d: %s at %.2f %s each\n",
			item.SKU, item.Quantity, offer.Supplier, offer.UnitPrice, offer.Currency)
	}

	fmt.Fprintf(&b, "Total: %.2f %s", p.Sourcing.TotalCost, p.Sourcing.Currency)
	if p.Conversion != nil && p.Conversion.Base != p.Conversion.Quote {
		fmt.Fprintf(&b, " (~%.2f %s at rate %.4f)",
			p.Conversion.AmountQuote, p.Conversion.Quote, p.Conversion.Rate)
	}
	b.WriteString("\n")

	if p.Request.Budget != nil {
		fmt.Fprintf(&b, "Budget: %.2f %s\n", *p.Request.Budget, p.Request.TargetCurrency)
	}
	if p.Notified != nil {
		status := "delivered"
		if !p.Notified.OK {
			status = "failed"
		}
		fmt.Fprintf(&b, "Webhook: %s (status %d)\n", status, p.Notified.StatusCode)
	}
	for _, w := range p.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	return strings.TrimRight(b.String(), "\n")
}
