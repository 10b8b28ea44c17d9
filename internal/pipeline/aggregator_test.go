package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

func record(ts time.Time, modelName string, u model.TokenUsage) source.Record {
	return source.Record{Timestamp: ts, Model: modelName, Usage: u}
}

func sessionFile(path, project string, modTime time.Time, records ...source.Record) SessionFile {
	return SessionFile{
		FileResult: source.FileResult{Path: path, Records: records, ModTime: modTime},
		Project:    project,
		ProjectDir: "-dir-" + project,
	}
}

func newTestAggregator(now time.Time, files ...SessionFile) *Aggregator {
	a := NewAggregator(&Dataset{Files: files}, pricing.FallbackCatalog())
	a.Now = func() time.Time { return now }
	a.Location = time.UTC
	return a
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDailyUsage_ZeroSeeded(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	a := newTestAggregator(now)

	days := a.DailyUsage(3)
	want := []string{"2025-06-10", "2025-06-09", "2025-06-08"}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i, d := range days {
		if d.Date != want[i] {
			t.Errorf("day %d = %s, want %s", i, d.Date, want[i])
		}
		if d.Usage.TotalTokens() != 0 || d.Usage.MessageCount != 0 || d.Usage.TotalCost != 0 {
			t.Errorf("day %s not zero: %+v", d.Date, d.Usage)
		}
	}
	if got := a.DailyUsage(0); got != nil {
		t.Errorf("DailyUsage(0) = %v", got)
	}
}

func TestDailyUsage_Buckets(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	u := model.TokenUsage{Input: 100, Output: 10}
	a := newTestAggregator(now,
		sessionFile("/a.jsonl", "a", now,
			record(at(t, "2025-06-10T01:00:00Z"), "claude-sonnet-4", u),
			record(at(t, "2025-06-09T23:59:59Z"), "claude-sonnet-4", u),
			record(at(t, "2025-06-01T10:00:00Z"), "claude-sonnet-4", u),
		),
		// Untouched for longer than the window: skipped without reading.
		sessionFile("/old.jsonl", "b", now.AddDate(0, 0, -10),
			record(at(t, "2025-06-10T02:00:00Z"), "claude-sonnet-4", u),
		),
	)

	days := a.DailyUsage(2)
	if days[0].Usage.MessageCount != 1 || days[1].Usage.MessageCount != 1 {
		t.Errorf("messages = %d, %d; want 1, 1", days[0].Usage.MessageCount, days[1].Usage.MessageCount)
	}
	if days[0].Usage.InputTokens != 100 {
		t.Errorf("today input = %d, want 100", days[0].Usage.InputTokens)
	}
}

func TestTodayUsage(t *testing.T) {
	now := at(t, "2025-06-10T15:00:00Z")
	a := newTestAggregator(now,
		sessionFile("/a.jsonl", "a", now,
			record(at(t, "2025-06-10T14:50:00Z"), "claude-sonnet-4", model.TokenUsage{Input: 1000, Output: 500}),
			record(at(t, "2025-06-09T14:50:00Z"), "claude-sonnet-4", model.TokenUsage{Input: 7}),
		),
	)

	st := a.TodayUsage()
	if st.InputTokens != 1000 || st.OutputTokens != 500 || st.MessageCount != 1 {
		t.Errorf("today = %+v", st)
	}
	if !approx(st.TotalCost, 0.0105) {
		t.Errorf("TotalCost = %v, want 0.0105", st.TotalCost)
	}
	if !st.IsSubscriptionUser {
		t.Error("estimated cost should mark a subscription user")
	}
	if st.ResetTime == nil || !st.ResetTime.Equal(at(t, "2025-06-10T19:00:00Z")) {
		t.Errorf("ResetTime = %v, want 19:00", st.ResetTime)
	}
}

func TestModelUsage(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	ts := at(t, "2025-06-10T10:00:00Z")
	a := newTestAggregator(now,
		sessionFile("/a.jsonl", "a", now,
			record(ts, "", model.TokenUsage{Input: 5}),
			record(ts, "claude-opus-4", model.TokenUsage{Input: 100, Output: 100}),
			record(ts, "claude-sonnet-4", model.TokenUsage{Input: 10, CacheRead: 10_000}),
			record(ts, "claude-opus-4", model.TokenUsage{Output: 1}),
		),
	)

	models := a.ModelUsage()
	want := []string{"claude-opus-4", "claude-sonnet-4", UnknownModel}
	if len(models) != len(want) {
		t.Fatalf("got %d models, want %d", len(models), len(want))
	}
	for i, m := range models {
		if m.Model != want[i] {
			t.Errorf("models[%d] = %s, want %s", i, m.Model, want[i])
		}
	}
	if models[0].Usage.MessageCount != 2 {
		t.Errorf("opus messages = %d, want 2", models[0].Usage.MessageCount)
	}
}

func TestAggregator_UnknownModelFallsBackToSonnet(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	a := newTestAggregator(now,
		sessionFile("/a.jsonl", "a", now,
			record(at(t, "2025-06-10T10:00:00Z"), "mystery-model", model.TokenUsage{Input: 1000, Output: 500}),
		),
	)
	st, ok := a.SessionUsage("/a.jsonl")
	if !ok {
		t.Fatal("session not found")
	}
	if !approx(st.TotalCost, 0.0105) {
		t.Errorf("TotalCost = %v, want 0.0105", st.TotalCost)
	}
	if _, ok := a.SessionUsage("/missing.jsonl"); ok {
		t.Error("missing session reported as found")
	}
}

func TestAggregator_BilledCostWins(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	r := record(at(t, "2025-06-10T10:00:00Z"), "claude-opus-4", model.TokenUsage{Input: 1000, Output: 500})
	r.CostUSD = 2.5
	a := newTestAggregator(now, sessionFile("/a.jsonl", "a", now, r))

	st, _ := a.SessionUsage("/a.jsonl")
	if st.TotalCost != 2.5 || st.IsSubscriptionUser {
		t.Errorf("got cost %v subscription %v", st.TotalCost, st.IsSubscriptionUser)
	}

	totals, rows := a.CostBreakdown()
	if !approx(totals.TotalCost, 2.5) {
		t.Errorf("breakdown total = %v, want 2.5", totals.TotalCost)
	}
	if len(rows) != 1 || !approx(rows[0].InputCost+rows[0].OutputCost, 2.5) {
		t.Errorf("rows = %+v", rows)
	}
}

func TestProjectUsage(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	ts := at(t, "2025-06-10T10:00:00Z")
	a := newTestAggregator(now,
		sessionFile("/a1.jsonl", "alpha", now, record(ts, "claude-sonnet-4", model.TokenUsage{Input: 10})),
		sessionFile("/a2.jsonl", "alpha", now, record(ts, "claude-sonnet-4", model.TokenUsage{Input: 10})),
		sessionFile("/b.jsonl", "beta", now, record(ts, "claude-opus-4", model.TokenUsage{Output: 1000})),
		sessionFile("/c.jsonl", "empty", now),
	)

	got := a.ProjectUsage()
	if len(got) != 2 {
		t.Fatalf("got %d projects, want 2", len(got))
	}
	if got[0].Project != "beta" || got[1].Project != "alpha" {
		t.Errorf("order = %s, %s", got[0].Project, got[1].Project)
	}
	if got[1].Usage.MessageCount != 2 {
		t.Errorf("alpha messages = %d, want 2", got[1].Usage.MessageCount)
	}
}

func TestProjectAnalytics(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	recent := sessionFile("/p/recent.jsonl", "proj", now.Add(-10*time.Minute),
		record(now.Add(-30*time.Minute), "claude-sonnet-4", model.TokenUsage{Input: 200, Output: 100, CacheCreation: 100, CacheRead: 150}),
	)
	older := sessionFile("/p/older.jsonl", "proj", now.Add(-3*time.Hour),
		record(now.Add(-4*time.Hour), "claude-sonnet-4", model.TokenUsage{Input: 100}),
	)
	a := newTestAggregator(now, recent, older)

	p := model.Project{
		Name:    "proj",
		DirName: "-dir-proj",
		Sessions: []model.Session{
			{ID: "recent", LastModified: now.Add(-10 * time.Minute), MessageCount: 4},
			{ID: "older", LastModified: now.Add(-3 * time.Hour), MessageCount: 2},
		},
	}
	pa := a.ProjectAnalytics(p)

	if pa.TotalSessions != 2 || pa.TotalMessages != 6 {
		t.Errorf("sessions %d messages %d", pa.TotalSessions, pa.TotalMessages)
	}
	if !pa.FirstSession.Equal(now.Add(-3*time.Hour)) || !pa.LastSession.Equal(now.Add(-10*time.Minute)) {
		t.Errorf("first %v last %v", pa.FirstSession, pa.LastSession)
	}
	if pa.TotalTokens != 650 {
		t.Errorf("TotalTokens = %d, want 650", pa.TotalTokens)
	}
	// 150 read / (300 input + 100 creation)
	if !approx(pa.CacheEfficiency, 37.5) {
		t.Errorf("CacheEfficiency = %v, want 37.5", pa.CacheEfficiency)
	}
	// 300 tokens over the 30 minutes since the recent session's first record
	if !approx(pa.BurnRate, 10) {
		t.Errorf("BurnRate = %v, want 10", pa.BurnRate)
	}
	if len(pa.SessionBlocks) != 1 || !pa.SessionBlocks[0].IsActive {
		t.Errorf("blocks = %+v", pa.SessionBlocks)
	}
}

func TestProjectAnalytics_NoRecentSession(t *testing.T) {
	now := at(t, "2025-06-10T12:00:00Z")
	a := newTestAggregator(now,
		sessionFile("/p/old.jsonl", "proj", now.Add(-2*time.Hour),
			record(now.Add(-3*time.Hour), "claude-sonnet-4", model.TokenUsage{Input: 100}),
		),
	)
	pa := a.ProjectAnalytics(model.Project{Name: "proj", DirName: "-dir-proj"})
	if pa.BurnRate != 0 {
		t.Errorf("BurnRate = %v, want 0", pa.BurnRate)
	}
}

func TestAggregator_NilData(t *testing.T) {
	a := &Aggregator{Now: func() time.Time { return time.Unix(0, 0) }}
	if got := a.ModelUsage(); len(got) != 0 {
		t.Errorf("ModelUsage() = %v", got)
	}
	if got := a.Blocks(); got != nil {
		t.Errorf("Blocks() = %v", got)
	}
}
