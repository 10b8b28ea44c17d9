package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

const maxDays = 366

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireData)
			r.Get("/projects", s.handleProjects)
			r.Get("/projects/{name}", s.handleProject)
			r.Get("/daily", s.handleDaily)
			r.Get("/models", s.handleModels)
			r.Get("/blocks", s.handleBlocks)
		})
	})
	return r
}

// requestLogger logs one line per request at debug.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"req", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Service) requireData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.engine.Ready() {
			respondError(w, http.StatusServiceUnavailable, "no data yet")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("encoding response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Usage is the JSON form of model.UsageStats.
type Usage struct {
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	TotalTokens         int64   `json:"total_tokens"`
	CostUSD             float64 `json:"cost_usd"`
	Messages            int     `json:"messages"`
	Estimated           bool    `json:"estimated"`
}

func usageOf(u model.UsageStats) Usage {
	return Usage{
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheCreationTokens: u.CacheCreationTokens,
		CacheReadTokens:     u.CacheReadTokens,
		TotalTokens:         u.TotalTokens(),
		CostUSD:             u.TotalCost,
		Messages:            u.MessageCount,
		Estimated:           u.IsSubscriptionUser,
	}
}

// Project is one entry of /v1/projects.
type Project struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	DirName      string    `json:"dir_name"`
	Kind         string    `json:"kind"`
	Sessions     int       `json:"sessions"`
	Messages     int       `json:"messages"`
	Active       bool      `json:"active"`
	LastActivity time.Time `json:"last_activity"`
}

// ProjectDetail is served at /v1/projects/{name}.
type ProjectDetail struct {
	Project
	FirstSession    time.Time `json:"first_session"`
	LastSession     time.Time `json:"last_session"`
	CacheEfficiency float64   `json:"cache_efficiency_pct"`
	BurnRate        float64   `json:"burn_rate_tokens_per_min"`
	Usage           Usage     `json:"usage"`
	Blocks          []Block   `json:"blocks"`
	Todos           TodoStats `json:"todos"`
}

// TodoStats summarizes a project's newest todo list.
type TodoStats struct {
	Total               int     `json:"total"`
	Pending             int     `json:"pending"`
	InProgress          int     `json:"in_progress"`
	Completed           int     `json:"completed"`
	CompletionPercent   float64 `json:"completion_pct"`
	HighPriorityPending int     `json:"high_priority_pending"`
}

// Block is one five-hour window.
type Block struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Active bool      `json:"active"`
	Usage  Usage     `json:"usage"`
}

func projectOf(p model.Project) Project {
	return Project{
		Name:         p.Name,
		Path:         p.Path,
		DirName:      p.DirName,
		Kind:         p.Kind.String(),
		Sessions:     len(p.Sessions),
		Messages:     p.TotalMessages(),
		Active:       p.IsActive,
		LastActivity: p.LastActivity(),
	}
}

func blocksOf(blocks []model.SessionBlock) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, Block{Start: b.StartTime, End: b.EndTime, Active: b.IsActive, Usage: usageOf(b.Usage)})
	}
	return out
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.eventsCopy())
}

func (s *Service) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if !s.sched.Trigger(s.refreshContext()) {
		respondError(w, http.StatusConflict, "refresh already running")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (s *Service) handleProjects(w http.ResponseWriter, _ *http.Request) {
	projects := s.engine.Projects()
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectOf(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Service) handleProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := source.FindProject(s.engine.Projects(), name)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("project %q not found", name))
		return
	}
	pa := s.engine.ProjectAnalytics(p)
	ts := source.TodoStats(s.engine.Todos(p))
	respondJSON(w, http.StatusOK, ProjectDetail{
		Project:         projectOf(p),
		FirstSession:    pa.FirstSession,
		LastSession:     pa.LastSession,
		CacheEfficiency: pa.CacheEfficiency,
		BurnRate:        pa.BurnRate,
		Usage:           usageOf(pa.Usage),
		Blocks:          blocksOf(pa.SessionBlocks),
		Todos: TodoStats{
			Total:               ts.Total,
			Pending:             ts.Pending,
			InProgress:          ts.InProgress,
			Completed:           ts.Completed,
			CompletionPercent:   ts.CompletionPercent,
			HighPriorityPending: ts.HighPriorityPending,
		},
	})
}

func (s *Service) handleDaily(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.Days
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxDays {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	type day struct {
		Date  string `json:"date"`
		Usage Usage  `json:"usage"`
	}
	daily := s.engine.DailyUsage(days)
	out := make([]day, 0, len(daily))
	for _, d := range daily {
		out = append(out, day{Date: d.Date, Usage: usageOf(d.Usage)})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Service) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelUsage struct {
		Model string `json:"model"`
		Usage Usage  `json:"usage"`
	}
	models := s.engine.ModelUsage()
	out := make([]modelUsage, 0, len(models))
	for _, m := range models {
		out = append(out, modelUsage{Model: m.Model, Usage: usageOf(m.Usage)})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Service) handleBlocks(w http.ResponseWriter, _ *http.Request) {
	type projection struct {
		TokensPerMinute float64 `json:"tokens_per_min"`
		CostPerHour     float64 `json:"cost_per_hour_usd"`
		ProjectedTokens int64   `json:"projected_tokens"`
		ProjectedCost   float64 `json:"projected_cost_usd"`
		PercentElapsed  float64 `json:"percent_elapsed"`
	}
	type blocksResponse struct {
		Blocks     []Block     `json:"blocks"`
		ResetTime  time.Time   `json:"reset_time"`
		UntilReset string      `json:"until_reset"`
		Active     *projection `json:"active,omitempty"`
	}

	snap := s.engine.Snapshot()
	resp := blocksResponse{
		Blocks:     blocksOf(snap.Blocks),
		ResetTime:  snap.ResetTime,
		UntilReset: s.engine.UntilReset(),
	}
	if bp, ok := s.engine.ActiveProjection(); ok {
		resp.Active = &projection{
			TokensPerMinute: bp.TokensPerMinute,
			CostPerHour:     bp.CostPerHour,
			ProjectedTokens: bp.ProjectedTokens,
			ProjectedCost:   bp.ProjectedCost,
			PercentElapsed:  bp.PercentElapsed,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{Type: "snapshot", Timestamp: time.Now(), Summary: s.status().Summary})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
