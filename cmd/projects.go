package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Projects found under the data directory",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	projects := eng.Projects()
	if len(projects) == 0 {
		fmt.Fprintln(out, "\n  No projects found.")
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("PROJECTS"))
	fmt.Fprintln(out)

	now := time.Now()
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		status := p.Kind.String()
		if p.IsActive {
			status = "active"
		}
		rows = append(rows, []string{
			p.Name,
			p.Path,
			status,
			cli.FormatNumber(int64(len(p.Sessions))),
			cli.FormatNumber(int64(p.TotalMessages())),
			cli.FormatAge(p.LastActivity(), now),
		})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Path", "Status", "Sessions", "Messages", "Last Activity"},
		Rows:    rows,
	}))

	st := source.Stats(projects)
	fmt.Fprintf(out, "\n  %d projects: %d active, %d orphaned, %d unknown\n",
		st.TotalProjects, st.ActiveProjects, st.OrphanedProjects, st.UnknownProjects)
	return nil
}
