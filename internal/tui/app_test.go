package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
)

func testSnapshot() analytics.Snapshot {
	now := time.Now()
	mk := func(name string) model.Project {
		return model.Project{
			Name:     name,
			Path:     "/work/" + name,
			DirName:  "-work-" + name,
			Kind:     model.PathResolved,
			IsActive: true,
			Sessions: []model.Session{{ID: name, LastModified: now, MessageCount: 3}},
		}
	}
	return analytics.Snapshot{
		Projects:   []model.Project{mk("alpha"), mk("beta"), mk("gamma")},
		Today:      model.UsageStats{InputTokens: 1000, OutputTokens: 500, TotalCost: 0.0105, MessageCount: 1, IsSubscriptionUser: true},
		ResetTime:  now.Add(2 * time.Hour),
		UntilReset: "2h 0m 0s",
		TakenAt:    now,
	}
}

func newTestApp(t *testing.T, build BuildFunc) App {
	t.Helper()
	a := NewApp(context.Background(), Options{Build: build, Days: 3, Interval: time.Hour, AutoRefresh: true})
	a.width, a.height = 120, 40
	return a
}

// waitApplied ticks until a snapshot has been applied.
func waitApplied(t *testing.T, a App) App {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m, _ := a.Update(tickMsg(time.Now()))
		a = m.(App)
		if a.engine.Ready() {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("snapshot never applied")
	return a
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_LoadsAndRenders(t *testing.T) {
	a := newTestApp(t, func(_ context.Context, progress pipeline.ProgressFunc) (analytics.Snapshot, error) {
		progress(1, 2)
		return testSnapshot(), nil
	})
	a.Init()

	if v := a.View(); !strings.Contains(v, "Scanning") {
		t.Errorf("loading view missing:\n%s", v)
	}

	a = waitApplied(t, a)
	for _, k := range []string{"o", "p", "d", "m"} {
		m, _ := a.Update(key(k))
		a = m.(App)
		if v := a.View(); v == "" {
			t.Errorf("tab %q rendered nothing", k)
		}
	}
	if a.activeTab != tabModels {
		t.Errorf("activeTab = %d, want %d", a.activeTab, tabModels)
	}
}

func TestApp_ProjectSelection(t *testing.T) {
	a := newTestApp(t, func(context.Context, pipeline.ProgressFunc) (analytics.Snapshot, error) {
		return testSnapshot(), nil
	})
	a.Init()
	a = waitApplied(t, a)

	m, _ := a.Update(key("p"))
	a = m.(App)
	_ = a.View()
	if a.engine.Render().Len() == 0 {
		t.Fatal("project detail not cached")
	}

	m, _ = a.Update(key("j"))
	a = m.(App)
	if a.engine.SelectedIndex() != 1 {
		t.Errorf("selected = %d, want 1", a.engine.SelectedIndex())
	}
	if a.engine.Render().Len() != 0 {
		t.Error("selection change should clear the render cache")
	}

	m, _ = a.Update(key("G"))
	a = m.(App)
	if a.engine.SelectedIndex() != 2 {
		t.Errorf("G selected %d, want 2", a.engine.SelectedIndex())
	}
}

func TestApp_FailedLoadStaysLoading(t *testing.T) {
	a := newTestApp(t, func(context.Context, pipeline.ProgressFunc) (analytics.Snapshot, error) {
		return analytics.Snapshot{}, errors.New("boom")
	})
	a.Init()

	deadline := time.Now().Add(time.Second)
	for a.sched.Refreshing() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m, _ := a.Update(tickMsg(time.Now()))
	a = m.(App)
	if a.engine.Ready() {
		t.Fatal("engine ready after failed refresh")
	}
	if !strings.Contains(a.View(), "Scanning") {
		t.Error("expected loading view")
	}
}

func TestApp_Quit(t *testing.T) {
	a := newTestApp(t, func(context.Context, pipeline.ProgressFunc) (analytics.Snapshot, error) {
		return testSnapshot(), nil
	})
	_, cmd := a.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestSetupValues_Apply(t *testing.T) {
	cfg := config.DefaultConfig()
	v := SetupValuesFrom(cfg, "")
	if v.Days != 7 || !v.Online {
		t.Fatalf("seeded values = %+v", v)
	}
	v.Days = 30
	v.Online = false
	v.ClaudeDir = "  /data/claude "
	v.Apply(&cfg)
	if cfg.General.DefaultDays != 30 || !cfg.Pricing.Offline || cfg.General.ClaudeDir != "/data/claude" {
		t.Errorf("applied config = %+v", cfg)
	}
	if NewSetupForm(&v) == nil {
		t.Error("NewSetupForm returned nil")
	}
}
