package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Today's usage, the active 5-hour block and time until reset",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	eng, e, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := requireProjects(eng); err != nil {
		if errors.Is(err, errNoData) {
			fmt.Fprintln(out, "\n  No Claude Code sessions found.")
			fmt.Fprintln(out, "  Use Claude Code first, then come back!")
			return nil
		}
		return err
	}

	snap := eng.Snapshot()
	today := eng.TodayUsage()
	plan := config.DetectPlan(e.home, e.claudeDir)

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("CLAUDE CODE USAGE  Today"))
	fmt.Fprintln(out)

	rows := [][]string{
		{"Messages", cli.FormatNumber(int64(today.MessageCount))},
		{"Input Tokens", cli.FormatTokens(today.InputTokens)},
		{"Output Tokens", cli.FormatTokens(today.OutputTokens)},
		{"Cache Write", cli.FormatTokens(today.CacheCreationTokens)},
		{"Cache Read", cli.FormatTokens(today.CacheReadTokens)},
		{"Cache Share", cli.FormatRatio(today.CacheEfficiency())},
		{cli.Separator},
		{"Cost", cli.FormatCost(today.TotalCost)},
		{"Plan", plan.Label()},
		{cli.Separator},
		{"Reset In", eng.UntilReset()},
		{"Reset At", cli.FormatTime(snap.ResetTime)},
	}
	if bp, ok := eng.ActiveProjection(); ok {
		rows = append(rows,
			[]string{"Block Cost", cli.FormatCost(bp.Block.Usage.TotalCost)},
			[]string{"Block Burn", cli.FormatRate(bp.TokensPerMinute)},
			[]string{"Projected", cli.FormatCost(bp.ProjectedCost)},
		)
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))

	st := source.Stats(snap.Projects)
	fmt.Fprintf(out, "\n  %d projects (%d active), %s sessions. Prices: %s\n",
		st.TotalProjects, st.ActiveProjects, cli.FormatNumber(int64(st.TotalSessions)), snap.Catalog.Source())
	return nil
}
