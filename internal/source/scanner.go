package source

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// DiscoveredFile is a session log found under the projects root.
type DiscoveredFile struct {
	Path       string
	ProjectDir string // sanitized directory name
	SessionID  string // file stem
	ModTime    time.Time
	Size       int64
}

// Scanner discovers projects under a projects root.
type Scanner struct {
	ProjectsDir string
	Resolver    *Resolver
	Now         func() time.Time
}

// NewScanner returns a Scanner for <claudeDir>/projects using the standard
// resolver rooted at home.
func NewScanner(claudeDir, home string) *Scanner {
	return &Scanner{
		ProjectsDir: filepath.Join(claudeDir, "projects"),
		Resolver:    NewResolver(home),
		Now:         time.Now,
	}
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Dirs lists the immediate subdirectories of the projects root. A missing
// root yields nothing.
func (s *Scanner) Dirs() ([]string, error) {
	entries, err := os.ReadDir(s.ProjectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading projects dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(s.ProjectsDir, e.Name()))
		}
	}
	return dirs, nil
}

// Scan parses every session log and builds every project sequentially,
// returning them in display order.
func (s *Scanner) Scan() ([]model.Project, error) {
	dirs, err := s.Dirs()
	if err != nil {
		return nil, err
	}
	var projects []model.Project
	for _, dir := range dirs {
		files, err := SessionFiles(dir)
		if err != nil {
			slog.Debug("skipping project", "path", dir, "err", err)
			continue
		}
		var parsed []FileResult
		for _, f := range files {
			res, err := ParseFile(f.Path)
			if err != nil {
				slog.Debug("skipping session", "path", f.Path, "err", err)
				continue
			}
			parsed = append(parsed, res)
		}
		if p, ok := s.Project(dir, parsed); ok {
			projects = append(projects, p)
		}
	}
	SortProjects(projects)
	return projects, nil
}

// Project builds the Project for one directory from its parsed session logs.
// Nothing is read from disk beyond resolver existence checks. ok is false
// when the directory has no sessions and its path could not be resolved.
func (s *Scanner) Project(dir string, files []FileResult) (model.Project, bool) {
	files = slices.Clone(files)
	slices.SortStableFunc(files, func(a, b FileResult) int {
		return b.ModTime.Compare(a.ModTime)
	})

	var sessions []model.Session
	cwds := make([]string, len(files))
	for i, f := range files {
		if sess, ok := f.Session(); ok {
			sessions = append(sessions, sess)
		}
		cwds[i] = f.LastCwd
	}

	dirName := filepath.Base(dir)
	resolver := s.Resolver
	if resolver == nil {
		resolver = NewResolver("")
	}
	res := resolver.Resolve(Candidate{DirName: dirName, Cwds: cwds})

	if len(sessions) == 0 && res.Kind != model.PathResolved {
		return model.Project{}, false
	}

	p := model.Project{
		Name:     DisplayName(res, dirName),
		Path:     res.Display,
		DirName:  dirName,
		Dir:      dir,
		Kind:     res.Kind,
		Sessions: sessions,
	}
	p.IsActive = p.ActiveAt(s.now())
	return p, true
}

// SessionFiles lists the *.jsonl files directly inside dir, newest first.
func SessionFiles(dir string) ([]DiscoveredFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	projectDir := filepath.Base(dir)

	var files []DiscoveredFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, DiscoveredFile{
			Path:       filepath.Join(dir, name),
			ProjectDir: projectDir,
			SessionID:  strings.TrimSuffix(name, ".jsonl"),
			ModTime:    info.ModTime(),
			Size:       info.Size(),
		})
	}
	slices.SortFunc(files, func(a, b DiscoveredFile) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return files, nil
}

// DiscoverFiles lists every session log under the projects root.
func DiscoverFiles(projectsDir string) ([]DiscoveredFile, error) {
	s := Scanner{ProjectsDir: projectsDir}
	dirs, err := s.Dirs()
	if err != nil {
		return nil, err
	}
	var files []DiscoveredFile
	for _, dir := range dirs {
		fs, err := SessionFiles(dir)
		if err != nil {
			slog.Debug("skipping project", "path", dir, "err", err)
			continue
		}
		files = append(files, fs...)
	}
	return files, nil
}

// SortProjects orders projects by their newest session, most recent first.
// Projects without sessions go last.
func SortProjects(projects []model.Project) {
	slices.SortStableFunc(projects, func(a, b model.Project) int {
		la, lb := a.LastActivity(), b.LastActivity()
		switch {
		case la.IsZero() && lb.IsZero():
			return cmp.Compare(a.DirName, b.DirName)
		case la.IsZero():
			return 1
		case lb.IsZero():
			return -1
		}
		return lb.Compare(la)
	})
}

// ScanStats summarizes a project list.
type ScanStats struct {
	TotalProjects      int
	ActiveProjects     int
	OrphanedProjects   int
	UnknownProjects    int
	TotalSessions      int
	MostRecentActivity time.Time
}

// Stats computes ScanStats over projects.
func Stats(projects []model.Project) ScanStats {
	var st ScanStats
	st.TotalProjects = len(projects)
	for _, p := range projects {
		if p.IsActive {
			st.ActiveProjects++
		}
		switch p.Kind {
		case model.PathOrphaned:
			st.OrphanedProjects++
		case model.PathUnknown:
			st.UnknownProjects++
		}
		st.TotalSessions += len(p.Sessions)
		if last := p.LastActivity(); last.After(st.MostRecentActivity) {
			st.MostRecentActivity = last
		}
	}
	return st
}

// FindProject returns the project whose display name or directory name
// matches name, case-insensitively.
func FindProject(projects []model.Project, name string) (model.Project, bool) {
	for _, p := range projects {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.DirName, name) {
			return p, true
		}
	}
	return model.Project{}, false
}
