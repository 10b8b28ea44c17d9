package pipeline

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
)

// dateLayout keys daily buckets.
const dateLayout = "2006-01-02"

// UnknownModel names records that carry no model.
const UnknownModel = "unknown"

// CostFunc prices one record. billed reports whether the log's own cost was used.
type CostFunc func(modelName string, u model.TokenUsage, costUSD float64) (cost float64, billed bool)

// PriceFunc returns per-token prices for a model.
type PriceFunc func(modelName string) pricing.ModelPricing

// Aggregator answers usage questions over one Dataset. Records are priced
// once, on first use.
type Aggregator struct {
	Data     *Dataset
	Cost     CostFunc
	Prices   PriceFunc
	Now      func() time.Time
	Location *time.Location

	once  sync.Once
	files []pricedFile
}

type pricedFile struct {
	*SessionFile
	records []PricedRecord
}

// NewAggregator prices data with the given catalog.
func NewAggregator(data *Dataset, catalog pricing.Catalog) *Aggregator {
	return &Aggregator{
		Data:   data,
		Cost:   catalog.Cost,
		Prices: catalog.Lookup,
	}
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Aggregator) loc() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.Local
}

func (a *Aggregator) prices(name string) pricing.ModelPricing {
	if a.Prices != nil {
		return a.Prices(name)
	}
	return pricing.Fallback(name)
}

func (a *Aggregator) priced() []pricedFile {
	a.once.Do(func() {
		if a.Data == nil {
			return
		}
		cost := a.Cost
		if cost == nil {
			cost = pricing.FallbackCatalog().Cost
		}
		a.files = make([]pricedFile, len(a.Data.Files))
		for i := range a.Data.Files {
			f := &a.Data.Files[i]
			recs := make([]PricedRecord, len(f.Records))
			for j, r := range f.Records {
				c, billed := cost(r.Model, r.Usage, r.CostUSD)
				recs[j] = PricedRecord{Record: r, Cost: c, Billed: billed}
			}
			a.files[i] = pricedFile{SessionFile: f, records: recs}
		}
	})
	return a.files
}

func (a *Aggregator) dateOf(t time.Time) string {
	return t.In(a.loc()).Format(dateLayout)
}

func modelName(name string) string {
	if name == "" {
		return UnknownModel
	}
	return name
}

// TodayUsage sums records dated today in local time. ResetTime is set to the
// next quota reset.
func (a *Aggregator) TodayUsage() model.UsageStats {
	now := a.now().In(a.loc())
	today := now.Format(dateLayout)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc())
	var st model.UsageStats
	for _, f := range a.priced() {
		if !f.ModTime.IsZero() && f.ModTime.Before(midnight) {
			continue
		}
		for _, r := range f.records {
			if a.dateOf(r.Timestamp) == today {
				st.AddUsage(r.Usage, r.Cost, r.Billed)
			}
		}
	}
	reset := a.ResetTime()
	st.ResetTime = &reset
	return st
}

// DailyUsage returns one bucket per local date for the last days days,
// today first. Dates without records are present with zero stats.
func (a *Aggregator) DailyUsage(days int) []model.DailyUsage {
	if days <= 0 {
		return nil
	}
	now := a.now().In(a.loc())
	out := make([]model.DailyUsage, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := now.AddDate(0, 0, -i).Format(dateLayout)
		out[i] = model.DailyUsage{Date: d}
		index[d] = i
	}

	// Logs are append-only, so a file untouched for longer than the window
	// cannot hold records inside it.
	cutoff := now.Add(-time.Duration(days+1) * 24 * time.Hour)
	for _, f := range a.priced() {
		if !f.ModTime.IsZero() && f.ModTime.Before(cutoff) {
			continue
		}
		for _, r := range f.records {
			if i, ok := index[a.dateOf(r.Timestamp)]; ok {
				out[i].Usage.AddUsage(r.Usage, r.Cost, r.Billed)
			}
		}
	}
	return out
}

// ModelUsage groups all records by model, heaviest input plus output first.
func (a *Aggregator) ModelUsage() []model.ModelUsage {
	byModel := make(map[string]*model.UsageStats)
	for _, f := range a.priced() {
		for _, r := range f.records {
			name := modelName(r.Model)
			st, ok := byModel[name]
			if !ok {
				st = &model.UsageStats{}
				byModel[name] = st
			}
			st.AddUsage(r.Usage, r.Cost, r.Billed)
		}
	}

	out := make([]model.ModelUsage, 0, len(byModel))
	for name, st := range byModel {
		out = append(out, model.ModelUsage{Model: name, Usage: *st})
	}
	slices.SortFunc(out, func(x, y model.ModelUsage) int {
		tx := x.Usage.InputTokens + x.Usage.OutputTokens
		ty := y.Usage.InputTokens + y.Usage.OutputTokens
		if c := cmp.Compare(ty, tx); c != 0 {
			return c
		}
		return cmp.Compare(x.Model, y.Model)
	})
	return out
}

// ProjectUsage groups all records by derived project name, costliest first.
func (a *Aggregator) ProjectUsage() []model.ProjectUsage {
	byProject := make(map[string]*model.UsageStats)
	for _, f := range a.priced() {
		if len(f.records) == 0 {
			continue
		}
		st, ok := byProject[f.Project]
		if !ok {
			st = &model.UsageStats{}
			byProject[f.Project] = st
		}
		for _, r := range f.records {
			st.AddUsage(r.Usage, r.Cost, r.Billed)
		}
	}

	out := make([]model.ProjectUsage, 0, len(byProject))
	for name, st := range byProject {
		out = append(out, model.ProjectUsage{Project: name, Usage: *st})
	}
	slices.SortFunc(out, func(x, y model.ProjectUsage) int {
		if c := cmp.Compare(y.Usage.TotalCost, x.Usage.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(x.Project, y.Project)
	})
	return out
}

// SessionUsage sums one session log. ok is false when path was not loaded.
func (a *Aggregator) SessionUsage(path string) (model.UsageStats, bool) {
	for _, f := range a.priced() {
		if f.Path != path {
			continue
		}
		var st model.UsageStats
		for _, r := range f.records {
			st.AddUsage(r.Usage, r.Cost, r.Billed)
		}
		return st, true
	}
	return model.UsageStats{}, false
}

// Records returns every priced record, in file order.
func (a *Aggregator) Records() []PricedRecord {
	var out []PricedRecord
	for _, f := range a.priced() {
		out = append(out, f.records...)
	}
	return out
}

// Blocks builds the quota windows over every record and marks the active one.
func (a *Aggregator) Blocks() []model.SessionBlock {
	blocks := BuildBlocks(a.Records())
	MarkActive(blocks, a.now())
	return blocks
}

// ResetTime is when the current quota window closes.
func (a *Aggregator) ResetTime() time.Time {
	return NextReset(BuildBlocks(a.Records()), a.now())
}

// ActiveProjection extrapolates the active block. ok is false when no block
// is open.
func (a *Aggregator) ActiveProjection() (model.BlockProjection, bool) {
	now := a.now()
	b, ok := ActiveBlock(BuildBlocks(a.Records()), now)
	if !ok {
		return model.BlockProjection{}, false
	}
	return ProjectBlock(b, now), true
}

// ProjectAnalytics details one project over all its sessions.
func (a *Aggregator) ProjectAnalytics(p model.Project) model.ProjectAnalytics {
	pa := model.ProjectAnalytics{
		TotalSessions: len(p.Sessions),
		TotalMessages: p.TotalMessages(),
	}
	for _, s := range p.Sessions {
		if pa.FirstSession.IsZero() || s.LastModified.Before(pa.FirstSession) {
			pa.FirstSession = s.LastModified
		}
		if s.LastModified.After(pa.LastSession) {
			pa.LastSession = s.LastModified
		}
	}

	files := a.projectFiles(p.DirName)
	var records []PricedRecord
	for _, f := range files {
		for _, r := range f.records {
			pa.Usage.AddUsage(r.Usage, r.Cost, r.Billed)
		}
		records = append(records, f.records...)
	}
	pa.TotalTokens = pa.Usage.TotalTokens()
	pa.EstimatedCost = pa.Usage.TotalCost
	pa.CacheEfficiency = cacheHitPercent(pa.Usage)

	now := a.now()
	pa.SessionBlocks = BuildBlocks(records)
	MarkActive(pa.SessionBlocks, now)
	pa.BurnRate = burnRate(files, now)
	return pa
}

func (a *Aggregator) projectFiles(dirName string) []pricedFile {
	var out []pricedFile
	for _, f := range a.priced() {
		if f.ProjectDir == dirName {
			out = append(out, f)
		}
	}
	return out
}

// cacheHitPercent is cache reads over input plus cache creation, in percent.
func cacheHitPercent(u model.UsageStats) float64 {
	denom := u.InputTokens + u.CacheCreationTokens
	if denom == 0 {
		return 0
	}
	return float64(u.CacheReadTokens) / float64(denom) * 100
}
