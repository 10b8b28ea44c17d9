// Package refresh runs full rescans in the background and hands finished
// snapshots back to the reader. At most one rescan is in flight.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
)

// RefreshFunc builds a fresh snapshot. It must not share mutable state with
// the reader.
type RefreshFunc func(ctx context.Context) (analytics.Snapshot, error)

type result struct {
	snap analytics.Snapshot
	err  error
}

// Scheduler moves between idle and refreshing. Trigger starts a refresh
// only when idle; receiving its outcome returns it to idle.
type Scheduler struct {
	refresh  RefreshFunc
	interval time.Duration

	refreshing atomic.Bool
	results    chan result

	mu          sync.Mutex
	lastStart   time.Time
	lastSuccess time.Time
	lastErr     error
}

// NewScheduler returns an idle scheduler. interval is the period Due and Run
// use; zero disables periodic refresh.
func NewScheduler(fn RefreshFunc, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresh:  fn,
		interval: interval,
		results:  make(chan result, 1),
	}
}

// Trigger starts a refresh unless one is already running, and reports
// whether it did. The refresh runs to completion; ctx is only for shutdown.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	s.lastStart = time.Now()
	s.mu.Unlock()

	go func() {
		snap, err := s.refresh(ctx)
		s.results <- result{snap: snap, err: err}
	}()
	return true
}

// Refreshing reports whether a refresh is in flight.
func (s *Scheduler) Refreshing() bool {
	return s.refreshing.Load()
}

// Due reports whether the periodic interval has passed since the last
// refresh started and none is running.
func (s *Scheduler) Due(now time.Time) bool {
	if s.interval <= 0 || s.Refreshing() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastStart) >= s.interval
}

// Drain collects finished refreshes without blocking, in arrival order.
// Failed refreshes are logged and yield nothing.
func (s *Scheduler) Drain() []analytics.Snapshot {
	var out []analytics.Snapshot
	for {
		select {
		case r := <-s.results:
			if snap, ok := s.receive(r); ok {
				out = append(out, snap)
			}
		default:
			return out
		}
	}
}

// receive clears the in-flight flag for any outcome.
func (s *Scheduler) receive(r result) (analytics.Snapshot, bool) {
	s.refreshing.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.err != nil {
		s.lastErr = r.err
		slog.Warn("background refresh failed", "err", r.err)
		return analytics.Snapshot{}, false
	}
	s.lastErr = nil
	s.lastSuccess = time.Now()
	return r.snap, true
}

// Status reports when the last refresh succeeded and the last failure, if
// the most recent refresh failed.
func (s *Scheduler) Status() (lastSuccess time.Time, lastErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess, s.lastErr
}

// Run refreshes immediately, then on every interval tick and every value
// from triggers, passing each finished snapshot to apply. It returns when
// ctx is done.
func (s *Scheduler) Run(ctx context.Context, triggers <-chan struct{}, apply func(analytics.Snapshot)) {
	s.Trigger(ctx)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Trigger(ctx)
		case <-triggers:
			s.Trigger(ctx)
		case r := <-s.results:
			if snap, ok := s.receive(r); ok {
				apply(snap)
			}
		}
	}
}
