package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/config"
	"github.com/melonicecream/cc-enhanced/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive first-time setup",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	v := tui.SetupValuesFrom(e.cfg, e.claudeDir)
	if err := tui.NewSetupForm(&v).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	cfg := e.cfg
	v.Apply(&cfg)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  Saved to %s\n", config.ConfigPath())
	fmt.Fprintln(out, "  Run `cc-enhanced setup` anytime to reconfigure.")
	return nil
}
