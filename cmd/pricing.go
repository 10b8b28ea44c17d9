package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/pricing"
)

var flagPricingRefresh bool

var pricingCmd = &cobra.Command{
	Use:   "pricing [model...]",
	Short: "Show resolved model prices",
	Long:  "Show per-million-token prices for known models, or resolve the named models.",
	RunE:  runPricing,
}

func init() {
	pricingCmd.Flags().BoolVar(&flagPricingRefresh, "refresh", false, "Fetch the price table now, ignoring its age")
	rootCmd.AddCommand(pricingCmd)
}

func runPricing(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	r := pricing.NewResolver(e.pricingOptions())
	if flagPricingRefresh {
		if err := r.ForceRefresh(cmd.Context()); err != nil {
			return fmt.Errorf("refreshing prices: %w", err)
		}
	} else if err := r.LoadCache(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", cli.Warn("price cache unreadable: "+err.Error()))
	}

	cat := r.Catalog()
	names := args
	if len(names) == 0 {
		names = cat.Models()
	}
	if len(names) == 0 {
		for _, t := range []pricing.Tier{pricing.TierOpus, pricing.TierSonnet, pricing.TierHaiku} {
			names = append(names, string(t))
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("MODEL PRICES  $ per million tokens"))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		in, outp, cw, cr := cat.Lookup(name).PerMTok()
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%.2f", in),
			fmt.Sprintf("%.2f", outp),
			fmt.Sprintf("%.2f", cw),
			fmt.Sprintf("%.2f", cr),
		})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output", "Cache Write", "Cache Read"},
		Rows:    rows,
	}))
	fmt.Fprintf(out, "\n  Source: %s\n", cat.Source())
	return nil
}
