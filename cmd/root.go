// Package cmd implements the cc-enhanced command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/analytics"
	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/logging"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
	"github.com/melonicecream/cc-enhanced/internal/store"
)

var (
	flagDataDir  string
	flagDays     int
	flagNoCache  bool
	flagOffline  bool
	flagQuiet    bool
	flagLogLevel string
)

// priceLimiter spaces out remote price fetches across every refresh this
// process runs.
var priceLimiter = pricing.NewLimiter()

var rootCmd = &cobra.Command{
	Use:               "cc-enhanced",
	Short:             "Claude Code usage and cost analytics",
	Long:              "Analyze Claude Code session logs: tokens, costs, projects and the 5-hour quota window.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDataDir, "data-dir", "d", "", "Claude data directory (default ~/.claude)")
	pf.IntVarP(&flagDays, "days", "n", 0, "Time window in days (default from config)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip the record cache and reparse every log")
	pf.BoolVar(&flagOffline, "offline", false, "Use cached or built-in prices, never fetch")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level := flagLogLevel
	if level == "" {
		if cfg, err := config.Load(); err == nil {
			level = cfg.Log.Level
		}
	}
	logging.Setup(logging.Options{Level: level, Writer: cmd.ErrOrStderr()})
	return nil
}

// env is the resolved configuration every command starts from.
type env struct {
	cfg       config.Config
	home      string
	claudeDir string
}

func loadEnv() (env, error) {
	cfg, err := config.Load()
	if err != nil {
		return env{}, err
	}
	home, err := config.HomeDir()
	if err != nil {
		return env{}, err
	}
	dir, err := config.DataRoot(cfg, flagDataDir)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, home: home, claudeDir: dir}, nil
}

func (e env) days() int {
	if flagDays > 0 {
		return flagDays
	}
	if e.cfg.General.DefaultDays > 0 {
		return e.cfg.General.DefaultDays
	}
	return 7
}

func (e env) pricingOptions() pricing.Options {
	return pricing.Options{
		CachePath: config.PricingCachePath(e.claudeDir),
		BaseURL:   e.cfg.Pricing.RemoteURL,
		Offline:   flagOffline || e.cfg.Pricing.Offline,
		Overrides: e.cfg.Pricing.ModelOverrides(),
		Limiter:   priceLimiter,
	}
}

// openCache opens the record cache unless disabled. A cache that cannot be
// opened is skipped.
func openCache() *store.Cache {
	if flagNoCache {
		return nil
	}
	c, err := store.Open(config.RecordCachePath())
	if err != nil {
		slog.Warn("record cache unavailable, parsing everything", "err", err)
		return nil
	}
	return c
}

func (e env) snapshotOptions(cache *store.Cache) analytics.Options {
	return analytics.Options{
		ClaudeDir: e.claudeDir,
		Home:      e.home,
		Cache:     cache,
		Pricing:   e.pricingOptions(),
	}
}

// loadEngine runs one full refresh and returns an engine holding it.
func loadEngine(ctx context.Context) (*analytics.Engine, env, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, env{}, err
	}

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	opts := e.snapshotOptions(cache)
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", config.ProjectsDir(e.claudeDir))
		opts.Progress = func(current, total int) {
			if current%100 == 0 || current == total {
				fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
			}
		}
	}

	snap, err := analytics.BuildSnapshot(ctx, opts)
	if err != nil {
		return nil, env{}, err
	}
	if !flagQuiet && snap.Data != nil {
		st := snap.Data.Stats
		fmt.Fprintf(os.Stderr, "\r  %s files, %s from cache, %d projects    \n",
			cli.FormatNumber(int64(st.TotalFiles)), cli.FormatNumber(int64(st.CacheHits)), st.ProjectCount)
		if st.FileErrors > 0 {
			fmt.Fprintf(os.Stderr, "  %d files could not be read\n", st.FileErrors)
		}
	}

	eng := analytics.NewEngine(nil)
	eng.Apply(snap)
	return eng, e, nil
}

var errNoData = errors.New("no Claude Code sessions found")

func requireProjects(eng *analytics.Engine) error {
	if len(eng.Projects()) == 0 {
		return errNoData
	}
	return nil
}
