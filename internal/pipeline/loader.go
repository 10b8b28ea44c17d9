package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
	"github.com/melonicecream/cc-enhanced/internal/store"
)

// SessionFile is one parsed session log attributed to a project.
type SessionFile struct {
	source.FileResult
	Project    string // display name of the owning project
	ProjectDir string // sanitized directory name
}

// LoadStats counts what a load touched.
type LoadStats struct {
	TotalFiles   int
	ParsedFiles  int
	ParseErrors  int
	FileErrors   int
	CacheHits    int
	Reparsed     int
	ProjectCount int
}

// Dataset is everything one refresh read from disk. It is never mutated
// after Load returns.
type Dataset struct {
	Projects []model.Project
	Files    []SessionFile
	Stats    LoadStats
	LoadedAt time.Time
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// LoadOptions controls Load.
type LoadOptions struct {
	Cache    *store.Cache // optional
	Progress ProgressFunc
	// Since skips files last modified before it. Zero loads everything.
	Since time.Time
}

// Load parses every session log under the projects root on a bounded worker
// pool, then builds the projects from those results. Cached results stand in
// for unchanged files, so an unchanged log is never reopened.
func Load(ctx context.Context, sc *source.Scanner, opts LoadOptions) (*Dataset, error) {
	dirs, err := sc.Dirs()
	if err != nil {
		return nil, err
	}

	files, err := source.DiscoverFiles(sc.ProjectsDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", sc.ProjectsDir, err)
	}
	all := len(files)
	if !opts.Since.IsZero() {
		kept := files[:0]
		for _, f := range files {
			if !f.ModTime.Before(opts.Since) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	results, stats, err := CollectRecords(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	if opts.Cache != nil && opts.Since.IsZero() && all > 0 {
		keep := make(map[string]bool, len(files))
		for _, f := range files {
			keep[f.Path] = true
		}
		if n, err := opts.Cache.Prune(keep); err != nil {
			slog.Debug("pruning record cache", "err", err)
		} else if n > 0 {
			slog.Debug("pruned record cache", "files", n)
		}
	}

	dirOf := make(map[string]string, len(files))
	for _, f := range files {
		dirOf[f.Path] = f.ProjectDir
	}
	byDir := make(map[string][]source.FileResult, len(dirs))
	for _, r := range results {
		byDir[dirOf[r.Path]] = append(byDir[dirOf[r.Path]], r)
	}

	projects, err := buildProjects(ctx, sc, dirs, byDir)
	if err != nil {
		return nil, err
	}
	stats.ProjectCount = len(projects)

	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.DirName] = p.Name
	}

	ds := &Dataset{Projects: projects, Stats: stats, LoadedAt: time.Now()}
	for _, r := range results {
		dir := dirOf[r.Path]
		name, ok := names[dir]
		if !ok {
			name = dir
		}
		ds.Files = append(ds.Files, SessionFile{FileResult: r, Project: name, ProjectDir: dir})
	}
	return ds, nil
}

// buildProjects resolves every project directory in parallel from its parsed
// logs and returns the projects in display order.
func buildProjects(ctx context.Context, sc *source.Scanner, dirs []string, byDir map[string][]source.FileResult) ([]model.Project, error) {
	type slot struct {
		p  model.Project
		ok bool
	}
	slots := make([]slot, len(dirs))
	err := forEach(ctx, len(dirs), func(i int) {
		p, ok := sc.Project(dirs[i], byDir[filepath.Base(dirs[i])])
		slots[i] = slot{p: p, ok: ok}
	}, nil)
	if err != nil {
		return nil, err
	}

	var projects []model.Project
	for _, s := range slots {
		if s.ok {
			projects = append(projects, s.p)
		}
	}
	source.SortProjects(projects)
	return projects, nil
}

// forEach runs fn for every index in [0, n) on a pool of GOMAXPROCS workers.
// Remaining indexes are skipped once ctx is done.
func forEach(ctx context.Context, n int, fn func(i int), progress ProgressFunc) error {
	if n == 0 {
		return ctx.Err()
	}
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > n {
		numWorkers = n
	}

	work := make(chan int, n)
	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	var processed atomic.Int64
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				fn(idx)
				done := processed.Add(1)
				if progress != nil {
					progress(int(done), n)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}
