package fx

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// RateSource is the external FX capability contract.
type RateSource interface {
	Rate(ctx context.Context, base, quote string) (float64, error)
}

// Static last-resort rates for when the external provider is unreachable.
// Unknown pairs degrade to 1.0.
var fallbackRates = map[[2]string]float64{
	{"USD", "EUR"}: 0.9,
	{"EUR", "USD"}: 1.11,
	{"USD", "RUB"}: 90.0,
	{"RUB", "USD"}: 1.0 / 90.0,
	{"EUR", "RUB"}: 98.0,
	{"RUB", "EUR"}: 1.0 / 98.0,
}

// Normalizer converts amounts between currencies, degrading to the static
// table instead of failing. It satisfies contract.Converter.
type Normalizer struct {
	rates RateSource
}

var _ contractx.Converter = (*Normalizer)(nil)

func NewNormalizer(rates RateSource) *Normalizer {
	return &Normalizer{rates: rates}
}

// Normalize converts amount from base into quote. The identity case makes no
// external call; every other failure path falls back to the static table, so
// a numeric answer is always produced.
func (n *Normalizer) Normalize(ctx context.Context, amount float64, base, quote string) contractx.ConversionResult {
	b := strings.ToUpper(strings.TrimSpace(base))
	q := strings.ToUpper(strings.TrimSpace(quote))

	if b == q {
		return conversion(amount, b, q, 1.0, contractx.FXExternal, false)
	}

	if n.rates != nil {
		rate, err := n.rates.Rate(ctx, b, q)
		if err == nil && rate > 0 {
			return conversion(amount, b, q, rate, contractx.FXExternal, false)
		}
		if err != nil {
			log.Warn().Err(err).Str("base", b).Str("quote", q).Msg("fx provider failed, using fallback rate")
		}
	}

	rate, ok := fallbackRates[[2]string{b, q}]
	if !ok {
		log.Warn().Str("base", b).Str("quote", q).Msg("no static rate for pair, assuming 1.0")
		rate = 1.0
	}
	return conversion(amount, b, q, rate, contractx.FXFallbackStatic, true)
}

func conversion(amount float64, base, quote string, rate float64, provider contractx.FXProvider, fallback bool) contractx.ConversionResult {
	return contractx.ConversionResult{
		Base:         base,
		Quote:        quote,
		AmountBase:   amount,
		AmountQuote:  amount * rate,
		Rate:         rate,
		Provider:     provider,
		FallbackUsed: fallback,
	}
}
