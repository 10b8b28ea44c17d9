package config

import (
	"path/filepath"

	"github.com/melonicecream/cc-enhanced/internal/pricing"
)

// PricingConfig controls how model prices are resolved.
type PricingConfig struct {
	RemoteURL string                          `toml:"remote_url,omitempty"`
	Offline   bool                            `toml:"offline"`
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides in dollars per
// million tokens. Unset cache prices derive from the input price.
type ModelPricingOverride struct {
	InputPerMTok      *float64 `toml:"input_per_mtok,omitempty"`
	OutputPerMTok     *float64 `toml:"output_per_mtok,omitempty"`
	CacheWritePerMTok *float64 `toml:"cache_write_per_mtok,omitempty"`
	CacheReadPerMTok  *float64 `toml:"cache_read_per_mtok,omitempty"`
}

// ModelOverrides converts the configured overrides to per-token prices.
// Unset input and output prices come from the model's built-in tier.
func (p PricingConfig) ModelOverrides() map[string]pricing.ModelPricing {
	if len(p.Overrides) == 0 {
		return nil
	}
	out := make(map[string]pricing.ModelPricing, len(p.Overrides))
	for name, o := range p.Overrides {
		in, outp, _, _ := pricing.Fallback(name).PerMTok()
		var cw, cr float64
		if o.InputPerMTok != nil {
			in = *o.InputPerMTok
		}
		if o.OutputPerMTok != nil {
			outp = *o.OutputPerMTok
		}
		if o.CacheWritePerMTok != nil {
			cw = *o.CacheWritePerMTok
		}
		if o.CacheReadPerMTok != nil {
			cr = *o.CacheReadPerMTok
		}
		out[name] = pricing.FromPerMTok(in, outp, cw, cr)
	}
	return out
}

// PricingCachePath is the price table cache file under the data root.
func PricingCachePath(claudeDir string) string {
	return filepath.Join(claudeDir, pricing.CacheFileName)
}

// RecordCachePath is the parsed-record database in the cache directory.
func RecordCachePath() string {
	return filepath.Join(CacheDir(), "records.db")
}
