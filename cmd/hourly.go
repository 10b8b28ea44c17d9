package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Activity by hour of day",
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	hours := eng.Comprehensive().Hourly

	var peak int64
	for _, h := range hours {
		peak = max(peak, h.Tokens)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("ACTIVITY BY HOUR"))
	fmt.Fprintln(out)

	const barWidth = 30
	for _, h := range hours {
		frac := 0.0
		if peak > 0 {
			frac = float64(h.Tokens) / float64(peak)
		}
		fmt.Fprintf(out, "  %02d:00  %s  %8s  %s\n",
			h.Hour, cli.RenderBar(frac, barWidth), cli.FormatTokens(h.Tokens), cli.Muted(cli.FormatCost(h.Cost)))
	}
	return nil
}
