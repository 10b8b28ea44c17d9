package cmd

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	cfg := e.cfg
	out := cmd.OutOrStdout()

	status := "loaded"
	if !config.Exists() {
		status = "using defaults (no config file)"
	}

	remote := cfg.Pricing.RemoteURL
	if remote == "" {
		remote = "default"
	}
	overrides := lo.Keys(cfg.Pricing.Overrides)
	slices.Sort(overrides)

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("CONFIGURATION"))
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderKV([][2]string{
		{"file", config.ConfigPath()},
		{"status", status},
		{"data dir", e.claudeDir},
		{"default days", strconv.Itoa(cfg.General.DefaultDays)},
		{"theme", cfg.General.Theme},
		{"auto refresh", fmt.Sprintf("%v every %s", cfg.Refresh.AutoRefresh, cfg.Refresh.Interval())},
		{"watch files", strconv.FormatBool(cfg.Refresh.WatchFiles)},
		{"pricing", fmt.Sprintf("offline=%v source=%s", cfg.Pricing.Offline, remote)},
		{"price cache", config.PricingCachePath(e.claudeDir)},
		{"record cache", config.RecordCachePath()},
		{"overrides", fmt.Sprint(overrides)},
		{"daemon", fmt.Sprintf("%s every %s", cfg.Daemon.Addr, cfg.Daemon.Interval())},
		{"log level", cfg.Log.Level},
		{"plan", config.DetectPlan(e.home, e.claudeDir).Label()},
	}))
	fmt.Fprintln(out, "\n  Run `cc-enhanced setup` to reconfigure.")
	return nil
}
