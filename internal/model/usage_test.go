package model

import (
	"testing"
	"time"
)

func TestUsageStats_TotalTokens(t *testing.T) {
	s := UsageStats{InputTokens: 10, OutputTokens: 20, CacheCreationTokens: 30, CacheReadTokens: 40}
	if got := s.TotalTokens(); got != 100 {
		t.Errorf("TotalTokens() = %d, want 100", got)
	}
}

func TestUsageStats_CacheEfficiency(t *testing.T) {
	tests := []struct {
		name  string
		stats UsageStats
		want  float64
	}{
		{"empty", UsageStats{}, 0},
		{"no cache", UsageStats{InputTokens: 100, OutputTokens: 100}, 0},
		{"half", UsageStats{InputTokens: 50, CacheReadTokens: 25, CacheCreationTokens: 25}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.CacheEfficiency(); got != tt.want {
				t.Errorf("CacheEfficiency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsageStats_AddCommutes(t *testing.T) {
	a := UsageStats{InputTokens: 1, OutputTokens: 2, TotalCost: 0.5, MessageCount: 1}
	b := UsageStats{CacheReadTokens: 7, TotalCost: 0.25, MessageCount: 3}

	var ab, ba UsageStats
	ab.Add(a)
	ab.Add(b)
	ba.Add(b)
	ba.Add(a)

	if ab.TotalTokens() != ba.TotalTokens() || ab.MessageCount != ba.MessageCount || ab.TotalCost != ba.TotalCost {
		t.Errorf("Add not commutative: %+v vs %+v", ab, ba)
	}
}

func TestUsageStats_AddUsageSubscriptionFlag(t *testing.T) {
	var s UsageStats
	s.AddUsage(TokenUsage{Input: 10}, 0.1, true)
	if s.IsSubscriptionUser {
		t.Error("billed record should not mark subscription")
	}
	s.AddUsage(TokenUsage{Output: 5}, 0.2, false)
	if !s.IsSubscriptionUser {
		t.Error("estimated record should mark subscription")
	}
	if s.MessageCount != 2 || s.TotalTokens() != 15 {
		t.Errorf("got %d messages, %d tokens", s.MessageCount, s.TotalTokens())
	}
}

func TestTokenUsage_HasUsage(t *testing.T) {
	if (TokenUsage{}).HasUsage() {
		t.Error("zero usage reported as having usage")
	}
	if !(TokenUsage{CacheRead: 1}).HasUsage() {
		t.Error("cache read only usage not detected")
	}
}

func TestProject_ActiveAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	recent := []Session{{ID: "a", LastModified: now.Add(-2 * time.Hour), MessageCount: 1}}
	stale := []Session{{ID: "b", LastModified: now.Add(-25 * time.Hour), MessageCount: 1}}

	tests := []struct {
		name string
		p    Project
		want bool
	}{
		{"resolved recent", Project{Kind: PathResolved, Sessions: recent}, true},
		{"resolved stale", Project{Kind: PathResolved, Sessions: stale}, false},
		{"orphaned recent", Project{Kind: PathOrphaned, Sessions: recent}, false},
		{"unknown recent", Project{Kind: PathUnknown, Sessions: recent}, false},
		{"no sessions", Project{Kind: PathResolved}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.ActiveAt(now); got != tt.want {
				t.Errorf("ActiveAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
