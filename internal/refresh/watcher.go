package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of log writes into one trigger.
const DefaultDebounce = 2 * time.Second

// Watcher signals when session logs under a projects root change.
type Watcher struct {
	fw       *fsnotify.Watcher
	root     string
	debounce time.Duration
	c        chan struct{}
}

// NewWatcher watches root and each project directory directly under it.
func NewWatcher(root string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if err := fw.Add(dir); err != nil {
			slog.Debug("not watching project", "path", dir, "err", err)
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{fw: fw, root: root, debounce: debounce, c: make(chan struct{}, 1)}, nil
}

// C delivers one value per settled burst of changes.
func (w *Watcher) C() <-chan struct{} {
	return w.c
}

// Run forwards debounced changes until ctx is done or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.handle(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Debug("watch error", "err", err)
		case <-fire:
			fire = nil
			select {
			case w.c <- struct{}{}:
			default:
			}
		}
	}
}

// handle starts watching new project directories and reports whether ev
// touched a session log.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == w.root {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fw.Add(ev.Name); err != nil {
				slog.Debug("not watching project", "path", ev.Name, "err", err)
			}
			return true
		}
	}
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
