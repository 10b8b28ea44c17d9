package analytics

import (
	"strings"
	"sync"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

// Cache lifetimes.
const (
	ProjectTTL       = 5 * time.Minute
	DailyTTL         = 3 * time.Minute
	ComprehensiveTTL = 30 * time.Second
	RenderIdle       = 60 * time.Second
)

// Engine is the reader-side state. Reads are served from the applied
// snapshot and the caches; nothing here touches the disk or the network.
type Engine struct {
	now func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	agg      *pipeline.Aggregator
	selected int
	applied  bool

	projects      *TTLCache[string, model.ProjectAnalytics]
	daily         *TTLCache[int, []model.DailyUsage]
	comprehensive *TTLCache[struct{}, model.UsageAnalytics]
	render        *RenderCache
}

// NewEngine returns an engine with no data. A nil now uses time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		now:           now,
		projects:      NewTTLCache[string, model.ProjectAnalytics](ProjectTTL, now),
		daily:         NewTTLCache[int, []model.DailyUsage](DailyTTL, now),
		comprehensive: NewTTLCache[struct{}, model.UsageAnalytics](ComprehensiveTTL, now),
		render:        NewRenderCache(RenderIdle, now),
	}
	e.agg = Snapshot{}.Aggregator(now)
	return e
}

// Apply replaces the current snapshot. The selected project is kept by
// directory name when it still exists; otherwise the selection is clamped.
// Every cache is dropped.
func (e *Engine) Apply(s Snapshot) {
	e.mu.Lock()
	prev := ""
	if e.selected >= 0 && e.selected < len(e.snap.Projects) {
		prev = e.snap.Projects[e.selected].DirName
	}
	e.snap = s
	e.agg = s.Aggregator(e.now)
	e.applied = true
	e.selected = clampIndex(e.selected, len(s.Projects))
	if prev != "" {
		for i, p := range s.Projects {
			if p.DirName == prev {
				e.selected = i
				break
			}
		}
	}
	e.Invalidate()
	e.mu.Unlock()
}

// Invalidate drops every cached value.
func (e *Engine) Invalidate() {
	e.projects.Invalidate()
	e.daily.Invalidate()
	e.comprehensive.Invalidate()
	e.render.Clear()
}

// Ready reports whether a snapshot has been applied.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// Snapshot returns the applied snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Projects returns the applied project list.
func (e *Engine) Projects() []model.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Projects
}

// Select moves the selection to i, clamped to the project list. Changing
// the selection clears the render cache.
func (e *Engine) Select(i int) {
	e.mu.Lock()
	next := clampIndex(i, len(e.snap.Projects))
	changed := next != e.selected
	e.selected = next
	e.mu.Unlock()

	if changed {
		e.render.Clear()
	}
}

// SelectByName selects the project with the given display or directory name.
func (e *Engine) SelectByName(name string) bool {
	e.mu.Lock()
	idx := -1
	for i, p := range e.snap.Projects {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.DirName, name) {
			idx = i
			break
		}
	}
	e.mu.Unlock()

	if idx < 0 {
		return false
	}
	e.Select(idx)
	return true
}

// SelectedIndex is the selected position, 0 when there are no projects.
func (e *Engine) SelectedIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Selected returns the selected project. ok is false when the list is empty.
func (e *Engine) Selected() (model.Project, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected < 0 || e.selected >= len(e.snap.Projects) {
		return model.Project{}, false
	}
	return e.snap.Projects[e.selected], true
}

func (e *Engine) aggregator() *pipeline.Aggregator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg
}

// TodayUsage is today's usage as of the applied snapshot.
func (e *Engine) TodayUsage() model.UsageStats {
	return e.Snapshot().Today
}

// UntilReset renders the time left until the quota window closes.
func (e *Engine) UntilReset() string {
	return pipeline.FormatUntilReset(e.Snapshot().ResetTime, e.now())
}

// DailyUsage returns the last days days, cached for DailyTTL.
func (e *Engine) DailyUsage(days int) []model.DailyUsage {
	e.mu.Lock()
	agg, gen := e.agg, e.daily.Generation()
	e.mu.Unlock()
	return e.daily.GetOrComputeAt(gen, days, func() []model.DailyUsage {
		return agg.DailyUsage(days)
	})
}

// ProjectAnalytics details p, cached for ProjectTTL by directory name.
func (e *Engine) ProjectAnalytics(p model.Project) model.ProjectAnalytics {
	e.mu.Lock()
	agg, gen := e.agg, e.projects.Generation()
	e.mu.Unlock()
	return e.projects.GetOrComputeAt(gen, p.DirName, func() model.ProjectAnalytics {
		return agg.ProjectAnalytics(p)
	})
}

// Comprehensive returns the cross-project analysis, cached for
// ComprehensiveTTL.
func (e *Engine) Comprehensive() model.UsageAnalytics {
	e.mu.Lock()
	agg, gen := e.agg, e.comprehensive.Generation()
	e.mu.Unlock()
	return e.comprehensive.GetOrComputeAt(gen, struct{}{}, agg.Comprehensive)
}

// ModelUsage groups the snapshot's records by model.
func (e *Engine) ModelUsage() []model.ModelUsage {
	return e.aggregator().ModelUsage()
}

// CostBreakdown splits spend by token type, overall and per model.
func (e *Engine) CostBreakdown() (pipeline.TokenTypeCosts, []pipeline.ModelCostBreakdown) {
	return e.aggregator().CostBreakdown()
}

// ActiveProjection extrapolates the open quota window, if any.
func (e *Engine) ActiveProjection() (model.BlockProjection, bool) {
	return e.aggregator().ActiveProjection()
}

// Todos returns the todo files recorded for p.
func (e *Engine) Todos(p model.Project) []model.SessionTodos {
	todos := e.Snapshot().Todos
	if sessions, ok := todos[p.Path]; ok {
		return sessions
	}
	return todos[strings.TrimPrefix(p.Path, source.OrphanedPrefix)]
}

// Render returns the render cache for derived display strings.
func (e *Engine) Render() *RenderCache {
	return e.render
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
