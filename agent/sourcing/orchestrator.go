package sourcing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	fakestorex "github.com/merchkit/procurement-agent/pkg/fakestore"
)

// PrimaryCatalog is the paid supplier capability (Printful-shaped).
type PrimaryCatalog interface {
	Enabled() bool
	FirstVariantPrice(ctx context.Context, query string) (price float64, description string, err error)
}

// SecondaryCatalog is the public catalog capability used when the primary
// supplier is disabled or failing.
type SecondaryCatalog interface {
	Products(ctx context.Context) ([]fakestorex.Product, error)
}

const (
	supplierPrimary   = "printful"
	supplierSecondary = "fakestore"

	defaultCurrency = "USD"

	// Reported in unavailable_skus for items whose SKU is blank, so the
	// warning text stays readable.
	emptySKUPlaceholder = "<empty>"
)

// Orchestrator resolves offers per line item through an ordered tier cascade.
// Per-item resolution is independent and runs concurrently; aggregation
// happens only after every item settles.
type Orchestrator struct {
	primary   PrimaryCatalog
	secondary SecondaryCatalog
	converter contractx.Converter
	currency  string
}

var _ contractx.Sourcer = (*Orchestrator)(nil)

type Option func(*Orchestrator)

func WithSupplierCurrency(currency string) Option {
	return func(o *Orchestrator) {
		if trimmed := strings.ToUpper(strings.TrimSpace(currency)); trimmed != "" {
			o.currency = trimmed
		}
	}
}

// New builds an orchestrator. Primary and secondary may be nil; the demo
// fallback always exists, so Source never fails outright.
func New(primary PrimaryCatalog, secondary SecondaryCatalog, converter contractx.Converter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		primary:   primary,
		secondary: secondary,
		converter: converter,
		currency:  defaultCurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// tier is one rung of the fallback cascade. A nil offer with nil error means
// the tier has nothing for the item and the cascade moves on.
type tier struct {
	name  contractx.ProviderTier
	quote func(ctx context.Context, item contractx.LineItem, batch *batchContext) (*contractx.Offer, error)
}

// batchContext carries read-only per-batch data shared by item goroutines.
type batchContext struct {
	products []fakestorex.Product
}

type itemResult struct {
	sku   string
	offer *contractx.Offer
	tier  contractx.ProviderTier
}

// Source resolves every item through the cascade, fans out per item, then
// joins and aggregates totals in a single dominant currency. Duplicate SKUs
// fold into one line first so each SKU resolves exactly once and lands in
// exactly one of Offers or UnavailableSKUs.
func (o *Orchestrator) Source(ctx context.Context, items []contractx.LineItem) (contractx.SourcingResult, error) {
	items = foldItems(items)

	result := contractx.SourcingResult{
		Offers:          make(map[string]contractx.Offer, len(items)),
		UnavailableSKUs: []string{},
		Currency:        o.currency,
		ProviderTier:    contractx.TierPrimary,
	}
	if len(items) == 0 {
		return result, nil
	}

	batch := &batchContext{}
	if o.secondary != nil {
		products, err := o.secondary.Products(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("secondary catalog prefetch failed, tier will fall through")
		} else {
			batch.products = products
		}
	}

	tiers := o.tiers()

	results := make([]itemResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item contractx.LineItem) {
			defer wg.Done()
			results[i] = o.resolveItem(ctx, item, tiers, batch)
		}(i, item)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return contractx.SourcingResult{}, err
	}

	worst := contractx.TierPrimary
	quantities := make(map[string]int, len(items))
	for _, item := range items {
		quantities[item.SKU] += item.Quantity
	}
	for _, res := range results {
		if worst.Worse(res.tier) {
			worst = res.tier
		}
		if res.offer == nil {
			result.UnavailableSKUs = append(result.UnavailableSKUs, res.sku)
			continue
		}
		result.Offers[res.sku] = *res.offer
	}
	result.ProviderTier = worst

	o.aggregate(ctx, &result, items, quantities)
	return result, nil
}

// aggregate computes the batch total in the most common resolved currency,
// converting minority-currency offers through the normalizer first. Mixed
// currencies are never summed as-is.
func (o *Orchestrator) aggregate(
	ctx context.Context,
	result *contractx.SourcingResult,
	items []contractx.LineItem,
	quantities map[string]int,
) {
	counts := map[string]int{}
	dominant := ""
	for _, item := range items {
		offer, ok := result.Offers[item.SKU]
		if !ok {
			continue
		}
		counts[offer.Currency]++
		if dominant == "" || counts[offer.Currency] > counts[dominant] {
			dominant = offer.Currency
		}
	}
	if dominant == "" {
		dominant = o.currency
	}
	result.Currency = dominant

	total := 0.0
	for sku, offer := range result.Offers {
		line := offer.UnitPrice * float64(quantities[sku])
		if offer.Currency != dominant && o.converter != nil {
			conv := o.converter.Normalize(ctx, line, offer.Currency, dominant)
			line = conv.AmountQuote
		}
		total += line
	}
	result.TotalCost = math.Round(total*100) / 100
}

// foldItems merges repeated SKUs into one line: quantities add up and a
// later price cap replaces an earlier one, mirroring how the interpreter
// folds repeated mentions. First-mention order is preserved.
func foldItems(items []contractx.LineItem) []contractx.LineItem {
	folded := make([]contractx.LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := index[it.SKU]; ok {
			folded[i].Quantity += it.Quantity
			if it.MaxUnitPrice != nil {
				folded[i].MaxUnitPrice = it.MaxUnitPrice
			}
			continue
		}
		index[it.SKU] = len(folded)
		folded = append(folded, it)
	}
	return folded
}

func (o *Orchestrator) tiers() []tier {
	return []tier{
		{name: contractx.TierPrimary, quote: o.quotePrimary},
		{name: contractx.TierSecondary, quote: o.quoteSecondary},
		{name: contractx.TierDemoFallback, quote: quoteDemo},
	}
}

func (o *Orchestrator) resolveItem(
	ctx context.Context,
	item contractx.LineItem,
	tiers []tier,
	batch *batchContext,
) itemResult {
	if strings.TrimSpace(item.SKU) == "" {
		return itemResult{sku: emptySKUPlaceholder, tier: contractx.TierDemoFallback}
	}
	if item.Quantity <= 0 {
		return itemResult{sku: item.SKU, tier: contractx.TierDemoFallback}
	}

	for _, t := range tiers {
		offer, err := t.quote(ctx, item, batch)
		if err != nil {
			log.Debug().
				Err(err).
				Str("sku", item.SKU).
				Str("tier", string(t.name)).
				Msg("tier failed, falling through")
			continue
		}
		if offer == nil {
			continue
		}
		return itemResult{sku: item.SKU, offer: offer, tier: t.name}
	}

	// Demo tier never errors, so this is only reachable when the item had no
	// acceptable offer anywhere.
	return itemResult{sku: item.SKU, tier: contractx.TierDemoFallback}
}

func (o *Orchestrator) quotePrimary(ctx context.Context, item contractx.LineItem, _ *batchContext) (*contractx.Offer, error) {
	if o.primary == nil || !o.primary.Enabled() {
		return nil, fmt.Errorf("primary supplier is not configured")
	}

	price, description, err := o.primary.FirstVariantPrice(ctx, NormalizeQuery(item.SKU))
	if err != nil {
		return nil, err
	}
	if item.MaxUnitPrice != nil && price > *item.MaxUnitPrice {
		return nil, fmt.Errorf("primary price %.2f exceeds cap %.2f", price, *item.MaxUnitPrice)
	}

	return &contractx.Offer{
		Supplier:    supplierPrimary,
		SKU:         item.SKU,
		UnitPrice:   price,
		Currency:    o.currency,
		Description: description,
		Available:   true,
	}, nil
}

func (o *Orchestrator) quoteSecondary(ctx context.Context, item contractx.LineItem, batch *batchContext) (*contractx.Offer, error) {
	if o.secondary == nil {
		return nil, fmt.Errorf("secondary catalog is not configured")
	}
	if len(batch.products) == 0 {
		return nil, fmt.Errorf("secondary catalog is empty or unreachable")
	}

	product := fakestorex.BestMatch(batch.products, NormalizeQuery(item.SKU))
	if product == nil {
		return nil, fmt.Errorf("no secondary match for sku %q", item.SKU)
	}
	if item.MaxUnitPrice != nil && product.Price > *item.MaxUnitPrice {
		return nil, fmt.Errorf("secondary price %.2f exceeds cap %.2f", product.Price, *item.MaxUnitPrice)
	}

	return &contractx.Offer{
		Supplier:    supplierSecondary,
		SKU:         item.SKU,
		UnitPrice:   product.Price,
		// The public catalog does not report a currency; quotes are treated
		// as supplier-currency amounts.
		Currency:    o.currency,
		Description: product.Title,
		Available:   true,
	}, nil
}

// quoteDemo is the terminal tier: the item is synthesized as unavailable at
// zero cost. It never errors, guaranteeing cascade termination.
func quoteDemo(context.Context, contractx.LineItem, *batchContext) (*contractx.Offer, error) {
	return nil, nil
}
