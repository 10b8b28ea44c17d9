// Package pricing resolves per-token prices for model names from a cached
// remote price table, user overrides and built-in tier constants.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// ModelPricing holds per-token prices in USD.
type ModelPricing struct {
	InputCost         float64 `json:"input_cost_per_token"`
	OutputCost        float64 `json:"output_cost_per_token"`
	CacheCreationCost float64 `json:"cache_creation_cost_per_token"`
	CacheReadCost     float64 `json:"cache_read_cost_per_token"`
}

var (
	cacheCreationFactor = decimal.RequireFromString("1.25")
	cacheReadFactor     = decimal.RequireFromString("0.1")
	perMillion          = decimal.NewFromInt(1_000_000)
)

// costPlaces drops float noise from computed costs without losing
// sub-cent precision on single records.
const costPlaces = 10

// WithDefaults fills missing cache prices from the input price.
func (p ModelPricing) WithDefaults() ModelPricing {
	in := decimal.NewFromFloat(p.InputCost)
	if p.CacheCreationCost <= 0 {
		p.CacheCreationCost = in.Mul(cacheCreationFactor).InexactFloat64()
	}
	if p.CacheReadCost <= 0 {
		p.CacheReadCost = in.Mul(cacheReadFactor).InexactFloat64()
	}
	return p
}

// Valid reports whether every price is non-negative and input is set.
func (p ModelPricing) Valid() bool {
	return p.InputCost > 0 && p.OutputCost >= 0 && p.CacheCreationCost >= 0 && p.CacheReadCost >= 0
}

// FromPerMTok converts per-million-token prices to per-token pricing.
func FromPerMTok(input, output, cacheCreation, cacheRead float64) ModelPricing {
	conv := func(v float64) float64 {
		return decimal.NewFromFloat(v).Div(perMillion).InexactFloat64()
	}
	return ModelPricing{
		InputCost:         conv(input),
		OutputCost:        conv(output),
		CacheCreationCost: conv(cacheCreation),
		CacheReadCost:     conv(cacheRead),
	}.WithDefaults()
}

// PerMTok returns the prices scaled to per million tokens, for display.
func (p ModelPricing) PerMTok() (input, output, cacheCreation, cacheRead float64) {
	conv := func(v float64) float64 {
		return decimal.NewFromFloat(v).Mul(perMillion).Round(4).InexactFloat64()
	}
	return conv(p.InputCost), conv(p.OutputCost), conv(p.CacheCreationCost), conv(p.CacheReadCost)
}

// Cost prices one usage record.
func (p ModelPricing) Cost(u model.TokenUsage) float64 {
	total := decimal.NewFromInt(u.Input).Mul(decimal.NewFromFloat(p.InputCost)).
		Add(decimal.NewFromInt(u.Output).Mul(decimal.NewFromFloat(p.OutputCost))).
		Add(decimal.NewFromInt(u.CacheCreation).Mul(decimal.NewFromFloat(p.CacheCreationCost))).
		Add(decimal.NewFromInt(u.CacheRead).Mul(decimal.NewFromFloat(p.CacheReadCost)))
	return total.Round(costPlaces).InexactFloat64()
}

// Breakdown prices each token type separately.
func (p ModelPricing) Breakdown(u model.TokenUsage) (input, output, cacheCreation, cacheRead float64) {
	mul := func(n int64, price float64) float64 {
		return decimal.NewFromInt(n).Mul(decimal.NewFromFloat(price)).Round(costPlaces).InexactFloat64()
	}
	return mul(u.Input, p.InputCost), mul(u.Output, p.OutputCost),
		mul(u.CacheCreation, p.CacheCreationCost), mul(u.CacheRead, p.CacheReadCost)
}

// CacheSavings is what the cache reads would have cost at the full input
// price minus what they did cost.
func (p ModelPricing) CacheSavings(cacheReadTokens int64) float64 {
	diff := decimal.NewFromFloat(p.InputCost).Sub(decimal.NewFromFloat(p.CacheReadCost))
	return decimal.NewFromInt(cacheReadTokens).Mul(diff).Round(costPlaces).InexactFloat64()
}

// Tier is a model family with its own fallback prices.
type Tier string

const (
	TierSonnet Tier = "sonnet"
	TierOpus   Tier = "opus"
	TierHaiku  Tier = "haiku"
)

var tiers = []Tier{TierSonnet, TierOpus, TierHaiku}

// fallbackPricing is used when no price table entry matches.
var fallbackPricing = map[Tier]ModelPricing{
	TierSonnet: {InputCost: 3e-6, OutputCost: 15e-6, CacheCreationCost: 3.75e-6, CacheReadCost: 0.3e-6},
	TierOpus:   {InputCost: 15e-6, OutputCost: 75e-6, CacheCreationCost: 18.75e-6, CacheReadCost: 1.5e-6},
	TierHaiku:  {InputCost: 0.25e-6, OutputCost: 1.25e-6, CacheCreationCost: 0.3125e-6, CacheReadCost: 0.025e-6},
}

// TierOf returns the tier keyword that appears first in name.
func TierOf(name string) (Tier, bool) {
	lower := strings.ToLower(name)
	best, bestIdx := Tier(""), -1
	for _, t := range tiers {
		if i := strings.Index(lower, string(t)); i >= 0 && (bestIdx < 0 || i < bestIdx) {
			best, bestIdx = t, i
		}
	}
	return best, bestIdx >= 0
}

// Fallback returns the built-in prices for name's tier, sonnet when the name
// has no tier keyword.
func Fallback(name string) ModelPricing {
	t, ok := TierOf(name)
	if !ok {
		t = TierSonnet
	}
	return fallbackPricing[t]
}
