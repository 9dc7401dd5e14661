package contract

// LineItem is one position of a procurement request. SKU is a short catalog
// search key ("hoodie", "t-shirt", "mug"), not a free-form description.
type LineItem struct {
	SKU          string   `json:"sku"`
	Quantity     int      `json:"quantity"`
	MaxUnitPrice *float64 `json:"max_unit_price,omitempty"`
}

// ProcurementRequest is the structured form of a conversation's accumulated
// procurement intent. Items keep user-stated order and hold at most one entry
// per SKU; repeated mentions merge into quantity.
type ProcurementRequest struct {
	Items          []LineItem `json:"items"`
	TargetCurrency string     `json:"target_currency"`
	Budget         *float64   `json:"budget,omitempty"`
	WebhookURL     string     `json:"webhook_url,omitempty"`
}

// FindItem returns the index of the line item with the given SKU, or -1.
func (r ProcurementRequest) FindItem(sku string) int {
	for i, it := range r.Items {
		if it.SKU == sku {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so snapshots in turn history stay immutable.
func (r ProcurementRequest) Clone() ProcurementRequest {
	out := r
	out.Items = make([]LineItem, len(r.Items))
	copy(out.Items, r.Items)
	if r.Budget != nil {
		b := *r.Budget
		out.Budget = &b
	}
	for i, it := range out.Items {
		if it.MaxUnitPrice != nil {
			p := *it.MaxUnitPrice
			out.Items[i].MaxUnitPrice = &p
		}
	}
	return out
}

// Offer is a single supplier quote chosen for a line item.
type Offer struct {
	Supplier    string  `json:"supplier"`
	SKU         string  `json:"sku"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	Available   bool    `json:"available"`
}

// ProviderTier identifies which rung of the supplier cascade produced an
// offer. Ordering matters: a later tier is a worse outcome.
type ProviderTier string

const (
	TierPrimary      ProviderTier = "primary"
	TierSecondary    ProviderTier = "secondary"
	TierDemoFallback ProviderTier = "demo_fallback"
)

// Worse reports whether tier b is a lower rung than a.
func (a ProviderTier) Worse(b ProviderTier) bool {
	return tierRank(b) > tierRank(a)
}

func tierRank(t ProviderTier) int {
	switch t {
	case TierPrimary:
		return 0
	case TierSecondary:
		return 1
	default:
		return 2
	}
}

// SourcingResult aggregates per-item offer resolution. Every requested SKU is
// in exactly one of Offers or UnavailableSKUs.
type SourcingResult struct {
	Offers          map[string]Offer `json:"offers"`
	UnavailableSKUs []string         `json:"unavailable_skus"`
	TotalCost       float64          `json:"total_cost"`
	Currency        string           `json:"currency"`
	ProviderTier    ProviderTier     `json:"provider_tier_used"`
}

// FXProvider distinguishes a live conversion from the static fallback table.
type FXProvider string

const (
	FXExternal       FXProvider = "external"
	FXFallbackStatic FXProvider = "fallback_static"
)

// ConversionResult reports one currency conversion. AmountQuote is always
// AmountBase * Rate by construction.
type ConversionResult struct {
	Base         string     `json:"base"`
	Quote        string     `json:"quote"`
	AmountBase   float64    `json:"amount_base"`
	AmountQuote  float64    `json:"amount_quote"`
	Rate         float64    `json:"rate"`
	Provider     FXProvider `json:"provider"`
	FallbackUsed bool       `json:"fallback_used"`
}

// NotifyOutcome captures the webhook delivery attempt for a plan.
type NotifyOutcome struct {
	StatusCode int  `json:"status_code"`
	OK         bool `json:"ok"`
}

// ProcurementPlan is the terminal artifact of a turn. Immutable once built;
// Warnings is always non-nil so the JSON form stays self-describing.
type ProcurementPlan struct {
	ID         string             `json:"id"`
	Request    ProcurementRequest `json:"request"`
	Sourcing   SourcingResult     `json:"sourcing"`
	Conversion *ConversionResult  `json:"conversion"`
	Notified   *NotifyOutcome     `json:"notified"`
	Warnings   []string           `json:"warnings"`
}

// CatalogQuote is a raw supplier quote for a catalog search query, before it
// is shaped into an Offer for a specific line item.
type CatalogQuote struct {
	Supplier    string
	Description string
	UnitPrice   float64
	Currency    string
}
