package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/model"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage table",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	eng, e, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	days := e.days()
	daily := eng.DailyUsage(days)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("DAILY USAGE  Last %dd", days)))
	fmt.Fprintln(out)

	costs := make([]float64, len(daily))
	rows := make([][]string, 0, len(daily)+2)
	var total model.UsageStats
	for i, d := range daily {
		costs[len(daily)-1-i] = d.Usage.TotalCost
		total.Add(d.Usage)
		rows = append(rows, []string{
			d.Date,
			cli.FormatDayOfWeek(d.Date),
			cli.FormatNumber(int64(d.Usage.MessageCount)),
			cli.FormatTokens(d.Usage.InputTokens + d.Usage.OutputTokens),
			cli.FormatTokens(d.Usage.CacheCreationTokens + d.Usage.CacheReadTokens),
			cli.FormatCost(d.Usage.TotalCost),
		})
	}
	rows = append(rows, []string{cli.Separator}, []string{
		"Total", "",
		cli.FormatNumber(int64(total.MessageCount)),
		cli.FormatTokens(total.InputTokens + total.OutputTokens),
		cli.FormatTokens(total.CacheCreationTokens + total.CacheReadTokens),
		cli.FormatCost(total.TotalCost),
	})

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Messages", "In+Out", "Cache", "Cost"},
		Rows:    rows,
	}))
	fmt.Fprintf(out, "\n  Trend %s\n", cli.RenderSparkline(costs))
	return nil
}
