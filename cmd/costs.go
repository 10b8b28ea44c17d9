package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost breakdown by token type and model",
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	totals, byModel := eng.CostBreakdown()
	ua := eng.Comprehensive()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("COST BREAKDOWN"))
	fmt.Fprintln(out)

	share := func(v float64) string {
		if totals.TotalCost <= 0 {
			return "-"
		}
		return cli.FormatRatio(v / totals.TotalCost)
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   "By token type",
		Headers: []string{"Type", "Cost", "Share"},
		Rows: [][]string{
			{"Input", cli.FormatCost(totals.InputCost), share(totals.InputCost)},
			{"Output", cli.FormatCost(totals.OutputCost), share(totals.OutputCost)},
			{"Cache Write", cli.FormatCost(totals.CacheCreationCost), share(totals.CacheCreationCost)},
			{"Cache Read", cli.FormatCost(totals.CacheReadCost), share(totals.CacheReadCost)},
			{cli.Separator},
			{"Total", cli.FormatCost(totals.TotalCost), ""},
		},
	}))

	if len(byModel) > 0 {
		rows := make([][]string, 0, len(byModel))
		for _, m := range byModel {
			rows = append(rows, []string{
				m.Model,
				cli.FormatCost(m.InputCost),
				cli.FormatCost(m.OutputCost),
				cli.FormatCost(m.CacheCost),
				cli.FormatCost(m.TotalCost),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, cli.RenderTable(cli.Table{
			Title:   "By model",
			Headers: []string{"Model", "Input", "Output", "Cache", "Total"},
			Rows:    rows,
		}))
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderKV([][2]string{
		{"active days", cli.FormatNumber(int64(ua.Costs.ActiveDays))},
		{"daily average", cli.FormatCost(ua.Costs.DailyAverage)},
		{"projected monthly", cli.FormatCost(ua.Costs.ProjectedMonthly)},
		{"cache savings", cli.FormatCost(ua.Cache.Savings)},
	}))
	return nil
}
