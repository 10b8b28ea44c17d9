package analytics

import (
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

func project(name string) model.Project {
	return model.Project{Name: name, DirName: "-" + name, Path: "/src/" + name, Kind: model.PathResolved}
}

func snapshotOf(now time.Time, projects ...model.Project) Snapshot {
	var files []pipeline.SessionFile
	for _, p := range projects {
		files = append(files, pipeline.SessionFile{
			FileResult: source.FileResult{
				Path:    "/logs/" + p.DirName + "/s.jsonl",
				ModTime: now,
				Records: []source.Record{{
					Timestamp: now.Add(-time.Hour),
					Model:     "claude-sonnet-4",
					Usage:     model.TokenUsage{Input: 1000, Output: 500},
				}},
			},
			Project:    p.Name,
			ProjectDir: p.DirName,
		})
	}
	return Snapshot{
		Projects: projects,
		Data:     &pipeline.Dataset{Projects: projects, Files: files},
		Catalog:  pricing.FallbackCatalog(),
		TakenAt:  now,
	}
}

func TestEngine_ApplyKeepsSelectionByName(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b"), project("c")))
	e.Select(1)

	e.Apply(snapshotOf(clk.Now(), project("x"), project("a"), project("y"), project("b")))
	if got := e.SelectedIndex(); got != 3 {
		t.Errorf("SelectedIndex = %d, want 3", got)
	}
	if p, ok := e.Selected(); !ok || p.Name != "b" {
		t.Errorf("Selected = %v, %v", p.Name, ok)
	}
}

func TestEngine_ApplyKeepsSelectionByDirName(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	work := model.Project{Name: "app", DirName: "-work-app", Path: "/work/app"}
	home := model.Project{Name: "app", DirName: "-home-app", Path: "/home/app"}
	e.Apply(snapshotOf(clk.Now(), work, home))
	e.Select(1)

	e.Apply(snapshotOf(clk.Now(), home, work))
	if p, ok := e.Selected(); !ok || p.DirName != "-home-app" {
		t.Errorf("Selected = %q, want -home-app", p.DirName)
	}
}

func TestEngine_ApplyDuringComputeDoesNotCacheOldData(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	e.Apply(snapshotOf(clk.Now(), project("a")))

	// A reader that captured the old aggregate finishes after Apply.
	gen := e.comprehensive.Generation()
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b")))
	e.comprehensive.GetOrComputeAt(gen, struct{}{}, func() model.UsageAnalytics {
		return model.UsageAnalytics{Projects: []model.ProjectUsageStats{{Project: "a"}}}
	})

	if got := e.Comprehensive().Projects; len(got) != 2 {
		t.Errorf("Comprehensive projects = %d, want 2 from the new snapshot", len(got))
	}
}

func TestEngine_ApplyClampsVanishedSelection(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b"), project("c")))
	e.Select(2)

	e.Apply(snapshotOf(clk.Now(), project("a")))
	if got := e.SelectedIndex(); got != 0 {
		t.Errorf("SelectedIndex = %d, want 0", got)
	}

	e.Apply(snapshotOf(clk.Now()))
	if _, ok := e.Selected(); ok {
		t.Error("selection reported on empty project list")
	}
}

func TestEngine_SelectClamps(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b")))

	e.Select(10)
	if e.SelectedIndex() != 1 {
		t.Errorf("Select(10) -> %d", e.SelectedIndex())
	}
	e.Select(-3)
	if e.SelectedIndex() != 0 {
		t.Errorf("Select(-3) -> %d", e.SelectedIndex())
	}
	if !e.SelectByName("-b") || e.SelectedIndex() != 1 {
		t.Error("SelectByName by dir name failed")
	}
	if e.SelectByName("nope") {
		t.Error("SelectByName matched a missing project")
	}
}

func TestEngine_CachesAndInvalidation(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	snap := snapshotOf(clk.Now(), project("a"))
	e.Apply(snap)

	first := e.DailyUsage(3)
	if len(first) != 3 || first[0].Usage.MessageCount != 1 {
		t.Fatalf("DailyUsage = %+v", first)
	}
	e.DailyUsage(3)
	e.ProjectAnalytics(project("a"))
	e.Comprehensive()
	if e.daily.Len() != 1 || e.projects.Len() != 1 || e.comprehensive.Len() != 1 {
		t.Fatalf("cache sizes %d %d %d", e.daily.Len(), e.projects.Len(), e.comprehensive.Len())
	}

	e.Render().Put("k", "v")
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b")))
	if e.daily.Len() != 0 || e.projects.Len() != 0 || e.comprehensive.Len() != 0 || e.Render().Len() != 0 {
		t.Error("Apply did not invalidate every cache")
	}
	if len(e.Comprehensive().Projects) != 2 {
		t.Error("Comprehensive served stale data after Apply")
	}
}

func TestEngine_SelectionChangeClearsRender(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	e.Apply(snapshotOf(clk.Now(), project("a"), project("b")))

	e.Render().Put("k", "v")
	e.Select(0)
	if e.Render().Len() != 1 {
		t.Error("render cache cleared without a selection change")
	}
	e.Select(1)
	if e.Render().Len() != 0 {
		t.Error("render cache kept after selection change")
	}
}

func TestEngine_Todos(t *testing.T) {
	clk := newClock()
	e := NewEngine(clk.Now)
	orphan := model.Project{Name: "gone", DirName: "-gone", Path: source.OrphanedPrefix + "/old/gone", Kind: model.PathOrphaned}
	snap := snapshotOf(clk.Now(), project("a"), orphan)
	snap.Todos = map[string][]model.SessionTodos{
		"/src/a":    {{SessionID: "s1"}},
		"/old/gone": {{SessionID: "s2"}},
	}
	e.Apply(snap)

	if got := e.Todos(project("a")); len(got) != 1 || got[0].SessionID != "s1" {
		t.Errorf("Todos(a) = %+v", got)
	}
	if got := e.Todos(orphan); len(got) != 1 || got[0].SessionID != "s2" {
		t.Errorf("Todos(orphan) = %+v", got)
	}
}

func TestEngine_Empty(t *testing.T) {
	e := NewEngine(nil)
	if e.Ready() {
		t.Error("new engine reports ready")
	}
	if got := e.DailyUsage(2); len(got) != 2 {
		t.Errorf("DailyUsage on empty engine = %v", got)
	}
	if len(e.ModelUsage()) != 0 {
		t.Error("ModelUsage on empty engine not empty")
	}
}
