package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// ExistsFunc reports whether a filesystem path exists.
type ExistsFunc func(path string) bool

// OSExists checks the real filesystem.
func OSExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Candidate is a project directory awaiting path resolution.
type Candidate struct {
	DirName string   // sanitized directory name
	Cwds    []string // last recorded cwd of each session log, newest first
}

// OrphanedPrefix starts the display path of an orphaned project.
const OrphanedPrefix = "Orphaned: "

// Resolution is the outcome of mapping a Candidate to a real path.
type Resolution struct {
	Kind    model.PathKind
	Path    string // the real path when resolved or orphaned
	Display string // shown to the user
}

// Strategy is one way of recovering a project path. ok is false when the
// strategy has nothing to say about the candidate.
type Strategy interface {
	Resolve(c Candidate) (res Resolution, ok bool)
}

// CwdStrategy uses the working directory recorded in the newest session log
// that has one.
type CwdStrategy struct {
	Exists ExistsFunc
}

func (s CwdStrategy) Resolve(c Candidate) (Resolution, bool) {
	for _, cwd := range c.Cwds {
		if cwd == "" || cwd == "/" {
			continue
		}
		if s.Exists(cwd) {
			return Resolution{Kind: model.PathResolved, Path: cwd, Display: cwd}, true
		}
		return Resolution{Kind: model.PathOrphaned, Path: cwd, Display: OrphanedPrefix + cwd}, true
	}
	return Resolution{}, false
}

// AbsoluteNameStrategy decodes the legacy naming where every path separator
// became '-' and the leading separator became the leading '-'.
type AbsoluteNameStrategy struct {
	Exists ExistsFunc
}

func (s AbsoluteNameStrategy) Resolve(c Candidate) (Resolution, bool) {
	if !strings.HasPrefix(c.DirName, "-") {
		return Resolution{}, false
	}
	p := "/" + strings.ReplaceAll(strings.TrimPrefix(c.DirName, "-"), "-", "/")
	if !s.Exists(p) {
		return Resolution{}, false
	}
	return Resolution{Kind: model.PathResolved, Path: p, Display: p}, true
}

// RelativeNameStrategy decodes "--" as a separator and "-" as a space, then
// looks for the result under a list of likely parent directories.
type RelativeNameStrategy struct {
	Exists ExistsFunc
	Roots  []string // "" means the decoded name as-is
}

// DefaultRoots returns the parent directories searched for relative names.
func DefaultRoots(home string) []string {
	roots := []string{""}
	if home == "" {
		return roots
	}
	roots = append(roots, home)
	for _, sub := range []string{"Desktop", "Documents", "workspace", "dev", "projects"} {
		roots = append(roots, filepath.Join(home, sub))
	}
	return roots
}

func (s RelativeNameStrategy) Resolve(c Candidate) (Resolution, bool) {
	decoded := strings.ReplaceAll(strings.ReplaceAll(c.DirName, "--", "/"), "-", " ")
	for _, root := range s.Roots {
		p := decoded
		if root != "" {
			p = filepath.Join(root, decoded)
		}
		if s.Exists(p) {
			return Resolution{Kind: model.PathResolved, Path: p, Display: p}, true
		}
	}
	return Resolution{}, false
}

// Resolver runs strategies in order and falls back to Unknown.
type Resolver struct {
	Strategies []Strategy
}

// NewResolver returns the standard strategy chain checking the real filesystem.
func NewResolver(home string) *Resolver {
	return NewResolverWith(home, OSExists)
}

// NewResolverWith is NewResolver with a custom existence check.
func NewResolverWith(home string, exists ExistsFunc) *Resolver {
	return &Resolver{Strategies: []Strategy{
		CwdStrategy{Exists: exists},
		AbsoluteNameStrategy{Exists: exists},
		RelativeNameStrategy{Exists: exists, Roots: DefaultRoots(home)},
	}}
}

// Resolve maps a candidate to a path classification.
func (r *Resolver) Resolve(c Candidate) Resolution {
	for _, s := range r.Strategies {
		if res, ok := s.Resolve(c); ok {
			return res
		}
	}
	return Resolution{Kind: model.PathUnknown, Display: "Unknown: " + c.DirName}
}

// DisplayName is the short project name shown in lists.
func DisplayName(res Resolution, dirName string) string {
	if res.Kind == model.PathResolved {
		if base := filepath.Base(res.Path); base != "." && base != "/" {
			return base
		}
	}
	parts := strings.Split(dirName, "-")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return dirName
}
