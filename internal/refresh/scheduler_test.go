package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
)

// waitDrain polls Drain until the scheduler goes idle.
func waitDrain(t *testing.T, s *Scheduler) []analytics.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var out []analytics.Snapshot
	for time.Now().Before(deadline) {
		out = append(out, s.Drain()...)
		if !s.Refreshing() {
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("refresh did not finish")
	return nil
}

func TestScheduler_OneInFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := NewScheduler(func(context.Context) (analytics.Snapshot, error) {
		calls.Add(1)
		<-release
		return analytics.Snapshot{TakenAt: time.Unix(1, 0)}, nil
	}, time.Minute)

	ctx := context.Background()
	if !s.Trigger(ctx) {
		t.Fatal("first Trigger should start a refresh")
	}
	if s.Trigger(ctx) {
		t.Fatal("second Trigger should be ignored while refreshing")
	}
	if got := s.Drain(); len(got) != 0 {
		t.Fatalf("Drain before completion = %d snapshots", len(got))
	}

	close(release)
	got := waitDrain(t, s)
	if len(got) != 1 || !got[0].TakenAt.Equal(time.Unix(1, 0)) {
		t.Fatalf("Drain = %+v", got)
	}
	if calls.Load() != 1 {
		t.Errorf("refresh ran %d times", calls.Load())
	}
	if !s.Trigger(ctx) {
		t.Error("Trigger after completion should start a new refresh")
	}
	waitDrain(t, s)
}

func TestScheduler_FailureClearsFlag(t *testing.T) {
	s := NewScheduler(func(context.Context) (analytics.Snapshot, error) {
		return analytics.Snapshot{}, errors.New("disk gone")
	}, time.Minute)

	s.Trigger(context.Background())
	if got := waitDrain(t, s); len(got) != 0 {
		t.Fatalf("failed refresh produced %d snapshots", len(got))
	}
	if _, err := s.Status(); err == nil {
		t.Error("Status should report the failure")
	}
	if !s.Trigger(context.Background()) {
		t.Error("Trigger after failure should start a refresh")
	}
	waitDrain(t, s)
}

func TestScheduler_Due(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(func(context.Context) (analytics.Snapshot, error) {
		<-release
		return analytics.Snapshot{}, nil
	}, 30*time.Second)

	now := time.Now()
	if !s.Due(now) {
		t.Fatal("never-run scheduler should be due")
	}
	s.Trigger(context.Background())
	if s.Due(now.Add(time.Hour)) {
		t.Error("Due while refreshing")
	}
	close(release)
	waitDrain(t, s)

	if s.Due(time.Now().Add(10 * time.Second)) {
		t.Error("Due before the interval elapsed")
	}
	if !s.Due(time.Now().Add(31 * time.Second)) {
		t.Error("not Due after the interval elapsed")
	}

	if NewScheduler(nil, 0).Due(now) {
		t.Error("zero interval should never be due")
	}
}

func TestScheduler_Run(t *testing.T) {
	var n atomic.Int64
	s := NewScheduler(func(context.Context) (analytics.Snapshot, error) {
		return analytics.Snapshot{TakenAt: time.Unix(n.Add(1), 0)}, nil
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggers := make(chan struct{})
	applied := make(chan analytics.Snapshot, 4)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, triggers, func(snap analytics.Snapshot) { applied <- snap })
		close(done)
	}()

	first := <-applied
	if first.TakenAt.Unix() != 1 {
		t.Fatalf("first snapshot = %v", first.TakenAt)
	}
	triggers <- struct{}{}
	select {
	case second := <-applied:
		if second.TakenAt.Unix() != 2 {
			t.Fatalf("second snapshot = %v", second.TakenAt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not refresh")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
