// Package tui is the interactive dashboard. It renders from an analytics
// Engine and applies snapshots delivered by a refresh Scheduler; it never
// reads the disk itself.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
	"github.com/melonicecream/cc-enhanced/internal/refresh"
	"github.com/melonicecream/cc-enhanced/internal/tui/components"
	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

const (
	tickInterval     = 500 * time.Millisecond
	minTerminalWidth = 80
	maxContentWidth  = 160
)

// BuildFunc builds a snapshot, reporting file progress.
type BuildFunc func(ctx context.Context, progress pipeline.ProgressFunc) (analytics.Snapshot, error)

// Options configures NewApp.
type Options struct {
	Build       BuildFunc
	Days        int
	Interval    time.Duration
	AutoRefresh bool
	Watch       <-chan struct{} // file change triggers, may be nil
	Project     string          // initial selection
}

type tickMsg time.Time

type loadProgress struct {
	current atomic.Int64
	total   atomic.Int64
}

func (p *loadProgress) report(current, total int) {
	p.current.Store(int64(current))
	p.total.Store(int64(total))
}

// App is the root Bubble Tea model.
type App struct {
	ctx      context.Context
	engine   *analytics.Engine
	sched    *refresh.Scheduler
	progress *loadProgress
	watch    <-chan struct{}

	days        int
	autoRefresh bool
	project     string
	lastApplied time.Time

	width     int
	height    int
	activeTab int
	showHelp  bool
	spinner   spinner.Model
}

// NewApp wires a dashboard to a fresh engine and scheduler. ctx bounds
// every background refresh.
func NewApp(ctx context.Context, opts Options) App {
	prog := &loadProgress{}
	build := opts.Build
	sched := refresh.NewScheduler(func(ctx context.Context) (analytics.Snapshot, error) {
		return build(ctx, prog.report)
	}, opts.Interval)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	days := opts.Days
	if days < 1 {
		days = 7
	}
	return App{
		ctx:         ctx,
		engine:      analytics.NewEngine(nil),
		sched:       sched,
		progress:    prog,
		watch:       opts.Watch,
		days:        days,
		autoRefresh: opts.AutoRefresh,
		project:     opts.Project,
		spinner:     sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	a.sched.Trigger(a.ctx)
	return tea.Batch(tea.EnableMouseCellMotion, a.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case tickMsg:
		a = a.onTick(time.Time(msg))
		return a, tick()

	case spinner.TickMsg:
		if a.engine.Ready() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		return a.onMouse(msg), nil

	case tea.KeyMsg:
		return a.onKey(msg)
	}
	return a, nil
}

// onTick applies finished refreshes and starts a new one when the interval
// has passed or a session log changed.
func (a App) onTick(now time.Time) App {
	for _, snap := range a.sched.Drain() {
		first := !a.engine.Ready()
		a.engine.Apply(snap)
		a.lastApplied = now
		if first && a.project != "" {
			a.engine.SelectByName(a.project)
		}
	}

	changed := false
	if a.watch != nil {
		select {
		case <-a.watch:
			changed = true
		default:
		}
	}
	// A failed first load keeps retrying on the interval even with auto
	// refresh off.
	if changed || ((a.autoRefresh || !a.engine.Ready()) && a.sched.Due(now)) {
		a.sched.Trigger(a.ctx)
	}
	a.engine.Render().Sweep()
	return a
}

func (a App) onMouse(msg tea.MouseMsg) App {
	if !a.engine.Ready() || a.showHelp {
		return a
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := components.TabAt(msg.X, a.activeTab); tab >= 0 {
				a.activeTab = tab
			}
		}
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabProjects {
			a.engine.Select(a.engine.SelectedIndex() - 1)
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabProjects {
			a.engine.Select(a.engine.SelectedIndex() + 1)
		}
	}
	return a
}

func (a App) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return a, tea.Quit
	}
	if !a.engine.Ready() {
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "?":
		a.showHelp = true
	case "r":
		a.sched.Trigger(a.ctx)
	case "a":
		a.autoRefresh = !a.autoRefresh
	case "tab", "right", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case "shift+tab", "left", "h":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "j", "down":
		a.engine.Select(a.engine.SelectedIndex() + 1)
	case "k", "up":
		a.engine.Select(a.engine.SelectedIndex() - 1)
	case "g":
		a.engine.Select(0)
	case "G":
		a.engine.Select(len(a.engine.Projects()) - 1)
	default:
		if tab := components.TabByKey(key); tab >= 0 {
			a.activeTab = tab
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	switch {
	case a.width == 0:
		return ""
	case a.width < minTerminalWidth:
		return fmt.Sprintf("\n  Terminal too narrow (%d cols); need at least %d.\n", a.width, minTerminalWidth)
	case !a.engine.Ready():
		return a.viewLoading()
	case a.showHelp:
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("cc-enhanced")
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(title + muted.Render("  usage analytics") + "\n\n")
	b.WriteString(a.spinner.View() + muted.Render(" Scanning session logs") + "\n")
	if total := a.progress.total.Load(); total > 0 {
		cur := a.progress.current.Load()
		b.WriteString("\n" + components.ProgressBar(float64(cur)/float64(total), 40) + "\n")
		b.WriteString(muted.Render(fmt.Sprintf("%s / %s files", cli.FormatNumber(cur), cli.FormatNumber(total))))
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3).
		Render(b.String())
	return lipgloss.Place(a.width, max(a.height, 10), lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewHelp() string {
	keys := [][2]string{
		{"o p d m", "switch tab"},
		{"tab / ← →", "next / previous tab"},
		{"j k ↑ ↓", "select project"},
		{"g G", "first / last project"},
		{"r", "refresh now"},
		{"a", "toggle auto refresh"},
		{"q", "quit"},
	}
	return "\n" + cli.RenderKV(keys) + "\n" + cli.Muted("  press any key to close")
}

func (a App) viewMain() string {
	cw := a.contentWidth()
	var body string
	switch a.activeTab {
	case tabOverview:
		body = a.renderOverview(cw)
	case tabProjects:
		body = a.renderProjects(cw)
	case tabDaily:
		body = a.renderDaily(cw)
	case tabModels:
		body = a.renderModels(cw)
	}

	bar := components.TabBar(a.activeTab)
	status := components.StatusBar(cw, "[?]help [r]efresh [a]uto [q]uit", a.statusText(time.Now()))

	height := max(a.height-lipgloss.Height(bar)-lipgloss.Height(status), 1)
	body = lipgloss.NewStyle().Height(height).MaxHeight(height).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, bar, body, status)
}

func (a App) statusText(now time.Time) string {
	auto := "auto off"
	if a.autoRefresh {
		auto = "auto on"
	}
	if a.sched.Refreshing() {
		return "refreshing…  " + auto
	}
	if _, err := a.sched.Status(); err != nil {
		return lipgloss.NewStyle().Foreground(theme.Active.Red).Render("refresh failed") + "  " + auto
	}
	return "updated " + cli.FormatAge(a.lastApplied, now) + "  " + auto
}
