package model

import "time"

// BlockDuration is the length of one rolling quota window.
const BlockDuration = 5 * time.Hour

// SessionBlock is a 5-hour quota window starting on the hour.
type SessionBlock struct {
	StartTime time.Time
	EndTime   time.Time
	Usage     UsageStats
	IsActive  bool
}

// BlockProjection describes the burn of the active block and where it is
// heading by the time the block closes.
type BlockProjection struct {
	Block           SessionBlock
	Elapsed         time.Duration
	Remaining       time.Duration
	TokensPerMinute float64
	CostPerHour     float64
	ProjectedTokens int64
	ProjectedCost   float64
	PercentElapsed  float64
}
