package cmd

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/logging"
	"github.com/melonicecream/cc-enhanced/internal/pipeline"
	"github.com/melonicecream/cc-enhanced/internal/refresh"
	"github.com/melonicecream/cc-enhanced/internal/tui"
	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

var flagTUIProject string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&flagTUIProject, "project", "p", "", "Project to select on start")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	theme.SetActive(e.cfg.General.Theme)
	// lipgloss falls back to no colors when it cannot detect the terminal
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Log lines would corrupt the alternate screen.
	logging.Discard()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}
	base := e.snapshotOptions(cache)

	opts := tui.Options{
		Build: func(ctx context.Context, progress pipeline.ProgressFunc) (analytics.Snapshot, error) {
			o := base
			o.Progress = progress
			return analytics.BuildSnapshot(ctx, o)
		},
		Days:        e.days(),
		Interval:    e.cfg.Refresh.Interval(),
		AutoRefresh: e.cfg.Refresh.AutoRefresh,
		Project:     flagTUIProject,
	}

	if e.cfg.Refresh.WatchFiles {
		w, err := refresh.NewWatcher(config.ProjectsDir(e.claudeDir), refresh.DefaultDebounce)
		if err != nil {
			slog.Debug("file watching disabled", "err", err)
		} else {
			defer func() { _ = w.Close() }()
			go w.Run(ctx)
			opts.Watch = w.C()
		}
	}

	p := tea.NewProgram(tui.NewApp(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
