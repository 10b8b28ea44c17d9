package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Usage by model",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	models := eng.ModelUsage()
	if len(models) == 0 {
		fmt.Fprintln(out, "\n  No model usage found.")
		return nil
	}

	var totalCost float64
	for _, m := range models {
		totalCost += m.Usage.TotalCost
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("MODEL USAGE"))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		share := 0.0
		if totalCost > 0 {
			share = m.Usage.TotalCost / totalCost
		}
		rows = append(rows, []string{
			m.Model,
			cli.FormatNumber(int64(m.Usage.MessageCount)),
			cli.FormatTokens(m.Usage.InputTokens),
			cli.FormatTokens(m.Usage.OutputTokens),
			cli.FormatTokens(m.Usage.CacheReadTokens),
			cli.FormatCost(m.Usage.TotalCost),
			cli.FormatRatio(share),
		})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Calls", "Input", "Output", "Cache Read", "Cost", "Share"},
		Rows:    rows,
	}))
	return nil
}
