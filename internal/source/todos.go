package source

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/melonicecream/cc-enhanced/internal/model"
)

// UnknownProject groups todos whose session log could not be found.
const UnknownProject = "unknown"

// ReadTodos reads every agent todo file in todosDir and groups them by the
// project path of their session. A missing todos dir yields nothing.
func ReadTodos(todosDir, projectsDir string, resolver *Resolver) (map[string][]model.SessionTodos, error) {
	entries, err := os.ReadDir(todosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading todos dir: %w", err)
	}
	if resolver == nil {
		resolver = NewResolver("")
	}

	locator := sessionLocator{projectsDir: projectsDir, resolver: resolver, cache: map[string]string{}}
	out := make(map[string][]model.SessionTodos)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(todosDir, e.Name())
		st, ok, err := readTodoFile(path)
		if err != nil {
			slog.Debug("skipping todo file", "path", path, "err", err)
			continue
		}
		if !ok {
			continue
		}
		st.ProjectPath = locator.projectPath(st.SessionID)
		out[st.ProjectPath] = append(out[st.ProjectPath], st)
	}
	return out, nil
}

// parseTodoName splits "{session}-agent-{agent}". The session id must be a UUID.
func parseTodoName(name string) (session, agent string, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	session, agent, found := strings.Cut(stem, "-agent-")
	if !found || agent == "" {
		return "", "", false
	}
	if _, err := uuid.Parse(session); err != nil {
		return "", "", false
	}
	return session, agent, true
}

func readTodoFile(path string) (model.SessionTodos, bool, error) {
	session, agent, ok := parseTodoName(filepath.Base(path))
	if !ok {
		return model.SessionTodos{}, false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.SessionTodos{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SessionTodos{}, false, err
	}
	var items []model.TodoItem
	if err := json.Unmarshal(data, &items); err != nil {
		return model.SessionTodos{}, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return model.SessionTodos{
		SessionID:    session,
		AgentID:      agent,
		Path:         path,
		LastModified: info.ModTime(),
		Todos:        items,
	}, true, nil
}

type sessionLocator struct {
	projectsDir string
	resolver    *Resolver
	dirs        []string
	listed      bool
	cache       map[string]string // project dir -> path
}

func (l *sessionLocator) projectPath(sessionID string) string {
	if !l.listed {
		s := Scanner{ProjectsDir: l.projectsDir}
		l.dirs, _ = s.Dirs()
		l.listed = true
	}
	for _, dir := range l.dirs {
		logPath := filepath.Join(dir, sessionID+".jsonl")
		if _, err := os.Stat(logPath); err != nil {
			continue
		}
		if p, ok := l.cache[dir]; ok {
			return p
		}
		var cwds []string
		if parsed, err := ParseFile(logPath); err == nil {
			cwds = []string{parsed.LastCwd}
		}
		res := l.resolver.Resolve(Candidate{DirName: filepath.Base(dir), Cwds: cwds})
		p := res.Path
		if res.Kind == model.PathUnknown || p == "" {
			p = UnknownProject
		}
		l.cache[dir] = p
		return p
	}
	return UnknownProject
}

func newestSession(sessions []model.SessionTodos) (model.SessionTodos, bool) {
	if len(sessions) == 0 {
		return model.SessionTodos{}, false
	}
	newest := sessions[0]
	for _, s := range sessions[1:] {
		if s.LastModified.After(newest.LastModified) {
			newest = s
		}
	}
	return newest, true
}

// TodoStats summarizes the most recently modified todo file of a project.
func TodoStats(sessions []model.SessionTodos) model.ProjectTodoStats {
	newest, ok := newestSession(sessions)
	if !ok {
		return model.ProjectTodoStats{}
	}
	st := model.ProjectTodoStats{LastModified: newest.LastModified}
	for _, t := range newest.Todos {
		st.Total++
		switch t.Status {
		case model.TodoCompleted:
			st.Completed++
		case model.TodoInProgress:
			st.InProgress++
		case model.TodoPending:
			st.Pending++
			if t.Priority == model.PriorityHigh {
				st.HighPriorityPending++
			}
		}
	}
	if st.Total > 0 {
		st.CompletionPercent = float64(st.Completed) / float64(st.Total) * 100
	}
	return st
}

// SortTodos returns the todos of the most recent file ordered by priority
// (high first) and then status (in progress, pending, completed).
func SortTodos(sessions []model.SessionTodos) []model.TodoItem {
	newest, ok := newestSession(sessions)
	if !ok {
		return nil
	}
	items := slices.Clone(newest.Todos)
	slices.SortStableFunc(items, func(a, b model.TodoItem) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		return a.Status.Rank() - b.Status.Rank()
	})
	return items
}
