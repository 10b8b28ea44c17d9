package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
)

var flagSessionLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Most recent sessions with duration and cost",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&flagSessionLimit, "limit", "l", 20, "Maximum sessions to show (0 for all)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	sessions := eng.Comprehensive().Sessions
	if len(sessions) == 0 {
		fmt.Fprintln(out, "\n  No sessions found.")
		return nil
	}
	if flagSessionLimit > 0 && len(sessions) > flagSessionLimit {
		sessions = sessions[:flagSessionLimit]
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("SESSIONS  %d most recent", len(sessions))))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		id := s.SessionID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			cli.FormatTime(s.Start),
			id,
			s.Project,
			cli.FormatDuration(s.Duration),
			cli.FormatNumber(int64(s.Prompts)),
			cli.FormatNumber(int64(s.Usage.MessageCount)),
			cli.FormatTokens(s.Usage.TotalTokens()),
			cli.FormatCost(s.Usage.TotalCost),
		})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Started", "Session", "Project", "Duration", "Prompts", "Messages", "Tokens", "Cost"},
		Rows:    rows,
	}))
	return nil
}
