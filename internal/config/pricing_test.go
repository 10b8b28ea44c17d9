package config

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestModelOverrides(t *testing.T) {
	p := PricingConfig{Overrides: map[string]ModelPricingOverride{
		"claude-opus-4": {InputPerMTok: ptr(10)},
		"custom":        {InputPerMTok: ptr(1), OutputPerMTok: ptr(2), CacheWritePerMTok: ptr(3), CacheReadPerMTok: ptr(0.5)},
	}}

	got := p.ModelOverrides()
	opus := got["claude-opus-4"]
	if math.Abs(opus.InputCost-10e-6) > 1e-15 {
		t.Errorf("opus input = %v, want 1e-5", opus.InputCost)
	}
	if math.Abs(opus.OutputCost-75e-6) > 1e-15 {
		t.Errorf("opus output = %v, want tier default 7.5e-5", opus.OutputCost)
	}
	if math.Abs(opus.CacheReadCost-1e-6) > 1e-15 {
		t.Errorf("opus cache read = %v, want 0.1x input", opus.CacheReadCost)
	}

	custom := got["custom"]
	if math.Abs(custom.CacheCreationCost-3e-6) > 1e-15 || math.Abs(custom.CacheReadCost-0.5e-6) > 1e-15 {
		t.Errorf("custom = %+v", custom)
	}
}

func TestModelOverrides_Empty(t *testing.T) {
	if got := (PricingConfig{}).ModelOverrides(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
