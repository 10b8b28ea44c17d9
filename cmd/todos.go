package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

var todosCmd = &cobra.Command{
	Use:   "todos [project]",
	Short: "Agent todo progress per project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTodos,
}

func init() {
	rootCmd.AddCommand(todosCmd)
}

func runTodos(cmd *cobra.Command, args []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		p, ok := source.FindProject(eng.Projects(), args[0])
		if !ok {
			return fmt.Errorf("project %q not found", args[0])
		}
		items := source.SortTodos(eng.Todos(p))
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.RenderTitle("TODOS  "+p.Name))
		fmt.Fprintln(out)
		if len(items) == 0 {
			fmt.Fprintln(out, "  No todos recorded.")
			return nil
		}
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{string(it.Status), string(it.Priority), it.Content})
		}
		fmt.Fprint(out, cli.RenderTable(cli.Table{Headers: []string{"Status", "Priority", "Task"}, Rows: rows}))
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle("TODOS"))
	fmt.Fprintln(out)

	var rows [][]string
	for _, p := range eng.Projects() {
		todos := eng.Todos(p)
		if len(todos) == 0 {
			continue
		}
		ts := source.TodoStats(todos)
		rows = append(rows, todoRow(p, ts))
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "  No todos recorded.")
		return nil
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Done", "Active", "Pending", "High", "Updated"},
		Rows:    rows,
	}))
	return nil
}

func todoRow(p model.Project, ts model.ProjectTodoStats) []string {
	return []string{
		p.Name,
		fmt.Sprintf("%d/%d", ts.Completed, ts.Total),
		fmt.Sprint(ts.InProgress),
		fmt.Sprint(ts.Pending),
		fmt.Sprint(ts.HighPriorityPending),
		cli.FormatTime(ts.LastModified),
	}
}
