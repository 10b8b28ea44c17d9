package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{1_234_567, "1.2M"},
		{2_500_000_000, "2.5B"},
		{-1500, "-1.5K"},
	}
	for _, tt := range tests {
		if got := FormatTokens(tt.in); got != tt.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCost(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{0.0105, "$0.01"},
		{0.0042, "$0.0042"},
		{12.34, "$12.3"},
		{123.4, "$123"},
		{12345.6, "$12,346"},
	}
	for _, tt := range tests {
		if got := FormatCost(tt.in); got != tt.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{125 * time.Second, "2m"},
		{62*time.Minute + 5*time.Second, "1h 2m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatAge(time.Time{}, now); got != "never" {
		t.Errorf("zero = %q", got)
	}
	if got := FormatAge(now.Add(-3*time.Hour), now); got != "3 hours ago" {
		t.Errorf("3h = %q", got)
	}
}

func TestFormatDayOfWeek(t *testing.T) {
	if got := FormatDayOfWeek("2025-03-01"); got != "Sat" {
		t.Errorf("got %q, want Sat", got)
	}
	if got := FormatDayOfWeek("bad"); got != "???" {
		t.Errorf("got %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Model", "Cost"},
		Rows: [][]string{
			{"claude-sonnet-4", "$1.00"},
			{Separator},
			{"Total", "$1.00"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "claude-sonnet-4") || !strings.Contains(out, "Total") {
		t.Errorf("missing cells:\n%s", out)
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline([]float64{0, 1}); got != "▁█" {
		t.Errorf("got %q", got)
	}
	if got := RenderSparkline([]float64{0, 0}); got != "▁▁" {
		t.Errorf("all zero = %q", got)
	}
}
