// Package model defines the value types produced by the scanner, aggregator and
// orchestrator. Values are copied across goroutines, never shared.
package model

import "time"

// ActiveWindow is how recently a session must have been written for its
// project to count as active.
const ActiveWindow = 24 * time.Hour

// Session is one conversation log file.
type Session struct {
	ID           string // file stem
	Path         string
	LastModified time.Time
	MessageCount int // non-blank lines
}

// PathKind classifies how a project directory was mapped back to a real path.
type PathKind int

const (
	PathResolved PathKind = iota
	PathOrphaned
	PathUnknown
)

func (k PathKind) String() string {
	switch k {
	case PathResolved:
		return "resolved"
	case PathOrphaned:
		return "orphaned"
	case PathUnknown:
		return "unknown"
	}
	return "invalid"
}

// Project is a logical project directory under the projects root.
type Project struct {
	Name     string // display name
	Path     string // resolved path, or "Orphaned: ..." / "Unknown: ..."
	DirName  string // sanitized directory name on disk
	Dir      string // absolute path of the project directory
	Kind     PathKind
	Sessions []Session // newest first
	IsActive bool
}

// LastActivity returns the newest session modification time, or zero.
func (p Project) LastActivity() time.Time {
	var last time.Time
	for _, s := range p.Sessions {
		if s.LastModified.After(last) {
			last = s.LastModified
		}
	}
	return last
}

// TotalMessages sums message counts across sessions.
func (p Project) TotalMessages() int {
	n := 0
	for _, s := range p.Sessions {
		n += s.MessageCount
	}
	return n
}

// Orphaned reports whether the project's working directory is gone.
func (p Project) Orphaned() bool {
	return p.Kind == PathOrphaned
}

// ActiveAt reports whether any session was modified within ActiveWindow of now.
// Projects that are not resolved are never active.
func (p Project) ActiveAt(now time.Time) bool {
	if p.Kind != PathResolved {
		return false
	}
	for _, s := range p.Sessions {
		if now.Sub(s.LastModified) < ActiveWindow {
			return true
		}
	}
	return false
}
