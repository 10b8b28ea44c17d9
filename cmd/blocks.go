package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/model"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "5-hour quota blocks and the next reset",
	RunE:  runBlocks,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}

func renderBlocks(title string, blocks []model.SessionBlock) string {
	rows := make([][]string, 0, len(blocks))
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		state := ""
		if b.IsActive {
			state = "active"
		}
		rows = append(rows, []string{
			b.StartTime.Local().Format("2006-01-02 15:04"),
			b.EndTime.Local().Format("15:04"),
			cli.FormatNumber(int64(b.Usage.MessageCount)),
			cli.FormatTokens(b.Usage.TotalTokens()),
			cli.FormatCost(b.Usage.TotalCost),
			state,
		})
	}
	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Start", "End", "Messages", "Tokens", "Cost", ""},
		Rows:    rows,
	})
}

func runBlocks(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	snap := eng.Snapshot()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("SESSION BLOCKS"))
	fmt.Fprintln(out)
	if len(snap.Blocks) == 0 {
		fmt.Fprintln(out, "  No usage recorded.")
	} else {
		fmt.Fprint(out, renderBlocks("", snap.Blocks))
	}

	fmt.Fprintf(out, "\n  Next reset %s (in %s)\n", cli.FormatTime(snap.ResetTime), eng.UntilReset())
	if bp, ok := eng.ActiveProjection(); ok {
		fmt.Fprintf(out, "  %s elapsed  %s  %s/h  projected %s\n",
			cli.RenderBar(bp.PercentElapsed/100, 20),
			cli.FormatRate(bp.TokensPerMinute),
			cli.FormatCost(bp.CostPerHour),
			cli.FormatCost(bp.ProjectedCost))
	}
	return nil
}
