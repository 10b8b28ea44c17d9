package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

var projectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Analytics for one project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	if !eng.SelectByName(args[0]) {
		return fmt.Errorf("project %q not found", args[0])
	}
	p, _ := eng.Selected()
	pa := eng.ProjectAnalytics(p)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("PROJECT  "+p.Name))
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderKV([][2]string{
		{"path", p.Path},
		{"status", p.Kind.String()},
		{"sessions", cli.FormatNumber(int64(pa.TotalSessions))},
		{"messages", cli.FormatNumber(int64(pa.TotalMessages))},
		{"tokens", cli.FormatTokens(pa.TotalTokens)},
		{"cost", cli.FormatCost(pa.EstimatedCost)},
		{"cache hits", cli.FormatPercent(pa.CacheEfficiency)},
		{"burn rate", cli.FormatRate(pa.BurnRate)},
		{"first session", cli.FormatTime(pa.FirstSession)},
		{"last session", cli.FormatTime(pa.LastSession)},
	}))

	if len(pa.SessionBlocks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, renderBlocks("5-hour blocks", pa.SessionBlocks))
	}

	if todos := eng.Todos(p); len(todos) > 0 {
		ts := source.TodoStats(todos)
		fmt.Fprintf(out, "\n  Todos: %d/%d completed (%.0f%%), %d in progress, %d high priority pending\n",
			ts.Completed, ts.Total, ts.CompletionPercent, ts.InProgress, ts.HighPriorityPending)
	}
	return nil
}
