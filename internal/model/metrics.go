package model

import "time"

// DailyUsage is the usage bucket for one local calendar date.
type DailyUsage struct {
	Date  string // 2006-01-02, local time
	Usage UsageStats
}

// ModelUsage is the usage bucket for one model name.
type ModelUsage struct {
	Model string
	Usage UsageStats
}

// ProjectUsage is the usage bucket for one derived project name.
type ProjectUsage struct {
	Project string
	Usage   UsageStats
}

// ProjectAnalytics is the detail view of a single project.
type ProjectAnalytics struct {
	TotalSessions   int
	TotalMessages   int
	TotalTokens     int64
	EstimatedCost   float64
	FirstSession    time.Time
	LastSession     time.Time
	CacheEfficiency float64 // percent, cache reads over input plus cache creation
	SessionBlocks   []SessionBlock
	BurnRate        float64 // tokens per minute over the last hour
	Usage           UsageStats
}

// UsageAnalytics is the full cross-project analysis.
type UsageAnalytics struct {
	Daily       []DailyUsageDetail
	Models      []ModelUsageStats
	Hourly      [24]HourlyUsage
	Cache       CacheEfficiencyStats
	Costs       CostBreakdown
	Projects    []ProjectUsageStats
	Sessions    []SessionAnalytics
	GeneratedAt time.Time
}

// DailyUsageDetail extends a daily bucket with activity shape.
type DailyUsageDetail struct {
	Date            string
	Usage           UsageStats
	SessionCount    int
	Models          []string
	PeakHour        int
	EfficiencyScore float64
}

type ModelUsageStats struct {
	Model          string
	Usage          UsageStats
	FirstUsed      time.Time
	LastUsed       time.Time
	AvgCostPerCall float64
}

type HourlyUsage struct {
	Hour         int
	Tokens       int64
	Cost         float64
	MessageCount int
}

// CacheEfficiencyStats summarizes prompt cache behaviour. HitRate is a
// percentage of cache reads over all cache traffic.
type CacheEfficiencyStats struct {
	CreationTokens int64
	ReadTokens     int64
	HitRate        float64
	Savings        float64
}

// CostBreakdown splits spend by token type.
type CostBreakdown struct {
	InputCost         float64
	OutputCost        float64
	CacheCreationCost float64
	CacheReadCost     float64
	TotalCost         float64
	DailyAverage      float64
	ProjectedMonthly  float64
	ActiveDays        int
}

type ProjectUsageStats struct {
	Project           string
	Usage             UsageStats
	SessionCount      int
	Models            []string
	FirstActivity     time.Time
	LastActivity      time.Time
	CacheEfficiency   float64
	MostUsedModel     string
	AvgSessionMinutes float64
}

// SessionAnalytics spans every timestamped line of the log, not only the
// usage-bearing ones.
type SessionAnalytics struct {
	SessionID string
	Project   string
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	Prompts   int // user entries
	Usage     UsageStats
	Models    []string
}
