package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
	"github.com/melonicecream/cc-enhanced/internal/source"
	"github.com/melonicecream/cc-enhanced/internal/store"
)

// Snapshot is the result of one full refresh. It is handed from the refresh
// goroutine to its reader and never modified afterwards.
type Snapshot struct {
	Projects   []model.Project
	Today      model.UsageStats
	Blocks     []model.SessionBlock
	ResetTime  time.Time
	UntilReset string
	Todos      map[string][]model.SessionTodos // keyed by project path
	Data       *pipeline.Dataset
	Catalog    pricing.Catalog
	TakenAt    time.Time
}

// Aggregator returns a fresh aggregator over the snapshot's records.
func (s Snapshot) Aggregator(now func() time.Time) *pipeline.Aggregator {
	data := s.Data
	if data == nil {
		data = &pipeline.Dataset{}
	}
	a := pipeline.NewAggregator(data, s.Catalog)
	a.Now = now
	return a
}

// Options configures BuildSnapshot.
type Options struct {
	ClaudeDir string
	Home      string
	Cache     *store.Cache // optional parsed-record cache
	Pricing   pricing.Options
	Progress  pipeline.ProgressFunc
	Now       func() time.Time
}

// BuildSnapshot runs the whole pipeline from scratch with its own scanner,
// resolver and aggregator. Nothing it builds is shared with the caller's
// Engine until the result is applied.
func BuildSnapshot(ctx context.Context, opts Options) (Snapshot, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	resolver := pricing.NewResolver(opts.Pricing)
	if err := resolver.Refresh(ctx); err != nil {
		switch {
		case errors.Is(err, pricing.ErrOffline), errors.Is(err, pricing.ErrThrottled):
			slog.Debug("price table not refreshed", "err", err)
		default:
			slog.Warn("refreshing price table, using cached or built-in prices", "err", err)
		}
	}

	sc := source.NewScanner(opts.ClaudeDir, opts.Home)
	sc.Now = now
	ds, err := pipeline.Load(ctx, sc, pipeline.LoadOptions{Cache: opts.Cache, Progress: opts.Progress})
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading usage: %w", err)
	}

	todos, err := source.ReadTodos(config.TodosDir(opts.ClaudeDir), sc.ProjectsDir, sc.Resolver)
	if err != nil {
		slog.Debug("reading todos", "err", err)
	}

	snap := Snapshot{
		Projects: ds.Projects,
		Todos:    todos,
		Data:     ds,
		Catalog:  resolver.Catalog(),
	}
	agg := snap.Aggregator(now)
	snap.TakenAt = now()
	snap.Today = agg.TodayUsage()
	snap.Blocks = agg.Blocks()
	snap.ResetTime = pipeline.NextReset(snap.Blocks, snap.TakenAt)
	snap.UntilReset = pipeline.FormatUntilReset(snap.ResetTime, snap.TakenAt)

	slog.Debug("snapshot built",
		"projects", len(ds.Projects),
		"files", ds.Stats.TotalFiles,
		"cache_hits", ds.Stats.CacheHits,
		"prices", snap.Catalog.Source(),
	)
	return snap, nil
}
