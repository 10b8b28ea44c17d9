package refresh

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_Debounces(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-home-user-app")
	if err := os.MkdirAll(proj, 0o750); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(root, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	log := filepath.Join(proj, "session.jsonl")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(log, []byte(`{"n":1}`+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-w.C():
	case <-time.After(3 * time.Second):
		t.Fatal("no trigger after writing a session log")
	}
	select {
	case <-w.C():
		t.Fatal("burst produced more than one trigger")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.C():
		t.Fatal("non-log file triggered a refresh")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Fatal("expected error for missing root")
	}
}
