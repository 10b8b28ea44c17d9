package model

import "time"

// TokenUsage is the raw per-message token counts from one log line.
type TokenUsage struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

// HasUsage reports whether any counter is non-zero.
func (u TokenUsage) HasUsage() bool {
	return u.Input > 0 || u.Output > 0 || u.CacheCreation > 0 || u.CacheRead > 0
}

// Total sums all four counters.
func (u TokenUsage) Total() int64 {
	return u.Input + u.Output + u.CacheCreation + u.CacheRead
}

// UsageStats accumulates usage over one scope (a day, model, project, session or block).
type UsageStats struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	TotalCost           float64
	MessageCount        int
	ResetTime           *time.Time

	// IsSubscriptionUser is true when the last accumulated record had no
	// billed cost and its cost was estimated from token counts.
	IsSubscriptionUser bool
}

// TotalTokens sums the four token fields.
func (s UsageStats) TotalTokens() int64 {
	return s.InputTokens + s.OutputTokens + s.CacheCreationTokens + s.CacheReadTokens
}

// CacheEfficiency is the share of all tokens that went through the prompt
// cache, in [0, 1]. Zero when there are no tokens.
func (s UsageStats) CacheEfficiency() float64 {
	total := s.TotalTokens()
	if total == 0 {
		return 0
	}
	return float64(s.CacheCreationTokens+s.CacheReadTokens) / float64(total)
}

// AddUsage records one message worth of tokens and cost.
func (s *UsageStats) AddUsage(u TokenUsage, cost float64, billed bool) {
	s.InputTokens += u.Input
	s.OutputTokens += u.Output
	s.CacheCreationTokens += u.CacheCreation
	s.CacheReadTokens += u.CacheRead
	s.TotalCost += cost
	s.MessageCount++
	s.IsSubscriptionUser = !billed
}

// Add folds other into s. Order of accumulation does not matter for the totals.
func (s *UsageStats) Add(other UsageStats) {
	s.InputTokens += other.InputTokens
	s.OutputTokens += other.OutputTokens
	s.CacheCreationTokens += other.CacheCreationTokens
	s.CacheReadTokens += other.CacheReadTokens
	s.TotalCost += other.TotalCost
	s.MessageCount += other.MessageCount
	if other.MessageCount > 0 {
		s.IsSubscriptionUser = other.IsSubscriptionUser
	}
}
