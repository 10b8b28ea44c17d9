package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

// FloorHour rounds t down to the top of its hour.
func FloorHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// PricedRecord is a record with its cost already resolved.
type PricedRecord struct {
	source.Record
	Cost   float64
	Billed bool
}

// BuildBlocks folds records into 5-hour quota windows. Records are sorted by
// timestamp first; a new block opens on the hour of the first record at or
// after the current block's end. The input slice is not modified.
func BuildBlocks(records []PricedRecord) []model.SessionBlock {
	if len(records) == 0 {
		return nil
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b PricedRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var blocks []model.SessionBlock
	var cur *model.SessionBlock
	for _, r := range sorted {
		if cur == nil || !r.Timestamp.Before(cur.EndTime) {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			start := FloorHour(r.Timestamp)
			cur = &model.SessionBlock{StartTime: start, EndTime: start.Add(model.BlockDuration)}
		}
		cur.Usage.AddUsage(r.Usage, r.Cost, r.Billed)
	}
	blocks = append(blocks, *cur)
	return blocks
}

// MarkActive sets IsActive on the first block still open at now and returns
// its index, or -1.
func MarkActive(blocks []model.SessionBlock, now time.Time) int {
	active := -1
	for i := range blocks {
		blocks[i].IsActive = false
		if active < 0 && blocks[i].EndTime.After(now) {
			blocks[i].IsActive = true
			active = i
		}
	}
	return active
}

// ActiveBlock returns the first block whose end is after now.
func ActiveBlock(blocks []model.SessionBlock, now time.Time) (model.SessionBlock, bool) {
	for _, b := range blocks {
		if b.EndTime.After(now) {
			b.IsActive = true
			return b, true
		}
	}
	return model.SessionBlock{}, false
}

// NextReset is the end of the active block, or one block length after the
// current hour when nothing is active.
func NextReset(blocks []model.SessionBlock, now time.Time) time.Time {
	if b, ok := ActiveBlock(blocks, now); ok {
		return b.EndTime
	}
	return FloorHour(now).Add(model.BlockDuration)
}

// FormatUntilReset renders the time left until reset.
func FormatUntilReset(reset, now time.Time) string {
	d := reset.Sub(now)
	if d <= 0 {
		return "Reset time passed"
	}
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ProjectBlock extrapolates the active block's burn to its end.
func ProjectBlock(b model.SessionBlock, now time.Time) model.BlockProjection {
	p := model.BlockProjection{Block: b}
	if now.Before(b.StartTime) {
		now = b.StartTime
	}
	if now.After(b.EndTime) {
		now = b.EndTime
	}
	p.Elapsed = now.Sub(b.StartTime)
	p.Remaining = b.EndTime.Sub(now)
	p.PercentElapsed = float64(p.Elapsed) / float64(model.BlockDuration) * 100

	tokens := b.Usage.TotalTokens()
	p.ProjectedTokens = tokens
	p.ProjectedCost = b.Usage.TotalCost

	mins := p.Elapsed.Minutes()
	if mins <= 0 {
		return p
	}
	p.TokensPerMinute = float64(tokens) / mins
	p.CostPerHour = b.Usage.TotalCost / p.Elapsed.Hours()
	p.ProjectedTokens = tokens + int64(p.TokensPerMinute*p.Remaining.Minutes())
	p.ProjectedCost = b.Usage.TotalCost + p.CostPerHour*p.Remaining.Hours()
	return p
}
