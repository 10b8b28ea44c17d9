// Package daemon runs the background refresh loop and serves the latest
// snapshot over HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/refresh"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

// Config controls the daemon runtime.
type Config struct {
	DataDir      string
	WatchDir     string // projects root to watch for log changes; empty disables
	Days         int
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Summary is the compact usage state carried by status and event payloads.
type Summary struct {
	At             time.Time `json:"at"`
	Projects       int       `json:"projects"`
	ActiveProjects int       `json:"active_projects"`
	Sessions       int       `json:"sessions"`
	TodayMessages  int       `json:"today_messages"`
	TodayTokens    int64     `json:"today_tokens"`
	TodayCostUSD   float64   `json:"today_cost_usd"`
	BlockTokens    int64     `json:"block_tokens"`
	BlockCostUSD   float64   `json:"block_cost_usd"`
	ResetTime      time.Time `json:"reset_time"`
	UntilReset     string    `json:"until_reset"`
	PriceSource    string    `json:"price_source"`
}

// Delta is the change between two consecutive summaries.
type Delta struct {
	Sessions      int     `json:"sessions"`
	TodayMessages int     `json:"today_messages"`
	TodayTokens   int64   `json:"today_tokens"`
	TodayCostUSD  float64 `json:"today_cost_usd"`
}

func (d Delta) isZero() bool {
	return d.Sessions == 0 && d.TodayMessages == 0 && d.TodayTokens == 0 && d.TodayCostUSD == 0
}

// Event is published whenever an applied snapshot changes the summary.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt          time.Time `json:"started_at"`
	LastRefreshAt      time.Time `json:"last_refresh_at"`
	RefreshIntervalSec int       `json:"refresh_interval_sec"`
	RefreshCount       int64     `json:"refresh_count"`
	Refreshing         bool      `json:"refreshing"`
	DataDir            string    `json:"data_dir"`
	Days               int       `json:"days"`
	Summary            Summary   `json:"summary"`
	LastError          string    `json:"last_error,omitempty"`
	EventCount         int       `json:"event_count"`
	SubscriberCount    int       `json:"subscriber_count"`
}

// Service owns an Engine fed by a refresh Scheduler.
type Service struct {
	cfg    Config
	engine *analytics.Engine
	sched  *refresh.Scheduler

	mu           sync.RWMutex
	runCtx       context.Context
	startedAt    time.Time
	lastRefresh  time.Time
	refreshCount int64
	hasSummary   bool
	summary      Summary
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service that builds snapshots with build.
func New(cfg Config, build refresh.RefreshFunc) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Days < 1 {
		cfg.Days = 7
	}
	return &Service{
		cfg:       cfg,
		engine:    analytics.NewEngine(nil),
		sched:     refresh.NewScheduler(build, cfg.Interval),
		startedAt: time.Now(),
		runCtx:    context.Background(),
		subs:      make(map[int]chan Event),
	}
}

// Engine exposes the service's engine.
func (s *Service) Engine() *analytics.Engine {
	return s.engine
}

// Run serves HTTP and refreshes until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var triggers <-chan struct{}
	if s.cfg.WatchDir != "" {
		w, err := refresh.NewWatcher(s.cfg.WatchDir, refresh.DefaultDebounce)
		if err != nil {
			slog.Warn("file watching disabled", "path", s.cfg.WatchDir, "err", err)
		} else {
			defer func() { _ = w.Close() }()
			go w.Run(ctx)
			triggers = w.C()
		}
	}

	done := make(chan struct{})
	go func() {
		s.sched.Run(ctx, triggers, s.apply)
		close(done)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		err := server.Shutdown(shutdownCtx)
		<-done
		return err
	case err := <-errCh:
		cancel()
		<-done
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// apply installs snap and publishes an event when the summary moved.
func (s *Service) apply(snap analytics.Snapshot) {
	s.engine.Apply(snap)
	sum := summarize(snap)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev, had := s.summary, s.hasSummary
	s.hasSummary = true
	s.summary = sum
	s.lastRefresh = sum.At
	s.refreshCount++

	switch {
	case !had:
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: sum.At, Summary: sum}
		publish = true
	default:
		if d := diffSummaries(prev, sum); !d.isZero() {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: "usage_delta", Timestamp: sum.At, Summary: sum, Delta: d}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func summarize(snap analytics.Snapshot) Summary {
	st := source.Stats(snap.Projects)
	sum := Summary{
		At:             snap.TakenAt,
		Projects:       st.TotalProjects,
		ActiveProjects: st.ActiveProjects,
		Sessions:       st.TotalSessions,
		TodayMessages:  snap.Today.MessageCount,
		TodayTokens:    snap.Today.TotalTokens(),
		TodayCostUSD:   snap.Today.TotalCost,
		ResetTime:      snap.ResetTime,
		UntilReset:     snap.UntilReset,
		PriceSource:    snap.Catalog.Source(),
	}
	for _, b := range snap.Blocks {
		if b.IsActive {
			sum.BlockTokens = b.Usage.TotalTokens()
			sum.BlockCostUSD = b.Usage.TotalCost
			break
		}
	}
	return sum
}

func diffSummaries(prev, curr Summary) Delta {
	return Delta{
		Sessions:      curr.Sessions - prev.Sessions,
		TodayMessages: curr.TodayMessages - prev.TodayMessages,
		TodayTokens:   curr.TodayTokens - prev.TodayTokens,
		TodayCostUSD:  curr.TodayCostUSD - prev.TodayCostUSD,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) status() Status {
	_, lastErr := s.sched.Status()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:          s.startedAt,
		LastRefreshAt:      s.lastRefresh,
		RefreshIntervalSec: int(s.cfg.Interval.Seconds()),
		RefreshCount:       s.refreshCount,
		Refreshing:         s.sched.Refreshing(),
		DataDir:            s.cfg.DataDir,
		Days:               s.cfg.Days,
		Summary:            s.summary,
		EventCount:         len(s.events),
		SubscriberCount:    len(s.subs),
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

// refreshContext outlives any single request so a triggered refresh runs to
// completion.
func (s *Service) refreshContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runCtx
}

func (s *Service) eventsCopy() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.subs[s.nextSubID] = ch
	return s.nextSubID
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
