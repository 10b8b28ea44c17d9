package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/cli"
	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
	"github.com/melonicecream/cc-enhanced/internal/tui/components"
	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

const (
	tabOverview = iota
	tabProjects
	tabDaily
	tabModels
)

func (a App) renderOverview(cw int) string {
	snap := a.engine.Snapshot()
	today := a.engine.TodayUsage()

	var b strings.Builder
	b.WriteString(components.MetricRow([]components.Metric{
		{Label: "Today", Value: cli.FormatCost(today.TotalCost), Note: costNote(today)},
		{Label: "Tokens", Value: cli.FormatTokens(today.TotalTokens()), Note: cli.FormatNumber(int64(today.MessageCount)) + " messages"},
		{Label: "Cache", Value: cli.FormatRatio(today.CacheEfficiency()), Note: "of today's tokens"},
		{Label: "Reset in", Value: a.engine.UntilReset(), Note: snap.ResetTime.Local().Format("15:04")},
	}, cw))
	b.WriteString("\n")

	half := components.LayoutRow(cw, 2)
	block := "No active block."
	if bp, ok := a.engine.ActiveProjection(); ok {
		inner := components.InnerWidth(half[0])
		block = components.ProgressBar(bp.PercentElapsed/100, inner-6) + "\n" +
			cli.RenderKV([][2]string{
				{"started", bp.Block.StartTime.Local().Format("15:04")},
				{"spent", cli.FormatCost(bp.Block.Usage.TotalCost)},
				{"burn", cli.FormatRate(bp.TokensPerMinute)},
				{"cost/hour", cli.FormatCost(bp.CostPerHour)},
				{"projected", cli.FormatCost(bp.ProjectedCost) + " / " + cli.FormatTokens(bp.ProjectedTokens)},
			})
	}

	st := source.Stats(snap.Projects)
	projects := cli.RenderKV([][2]string{
		{"projects", fmt.Sprintf("%d (%d active)", st.TotalProjects, st.ActiveProjects)},
		{"orphaned", fmt.Sprintf("%d", st.OrphanedProjects)},
		{"unknown", fmt.Sprintf("%d", st.UnknownProjects)},
		{"sessions", cli.FormatNumber(int64(st.TotalSessions))},
		{"last activity", cli.FormatAge(st.MostRecentActivity, snap.TakenAt)},
		{"prices", snap.Catalog.Source()},
	})

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		components.Panel("Current 5h block", block, half[0], true),
		components.Panel("Workspace", projects, half[1], false),
	))
	b.WriteString("\n")
	return b.String()
}

func costNote(u model.UsageStats) string {
	if u.MessageCount > 0 && u.IsSubscriptionUser {
		return "estimated"
	}
	return "billed"
}

func (a App) renderProjects(cw int) string {
	t := theme.Active
	projects := a.engine.Projects()
	if len(projects) == 0 {
		return "\n  No projects found."
	}
	widths := []int{cw * 2 / 5, cw - cw*2/5}

	listHeight := max(a.height-6, 5)
	sel := a.engine.SelectedIndex()
	start := max(0, min(sel-listHeight/2, len(projects)-listHeight))
	end := min(len(projects), start+listHeight)

	nameW := components.InnerWidth(widths[0]) - 4
	selStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var list strings.Builder
	for i := start; i < end; i++ {
		p := projects[i]
		marker := "  "
		if p.IsActive {
			marker = "● "
		}
		line := marker + components.Truncate(p.Name, nameW)
		switch {
		case i == sel:
			list.WriteString(selStyle.Render("▸" + line))
		case p.Kind != model.PathResolved:
			list.WriteString(dimStyle.Render(" " + line))
		default:
			list.WriteString(rowStyle.Render(" " + line))
		}
		list.WriteString("\n")
	}

	p, _ := a.engine.Selected()
	key := fmt.Sprintf("project:%s:%d", p.DirName, widths[1])
	detail := a.engine.Render().GetOrRender(key, func() string {
		return a.projectDetail(p, components.InnerWidth(widths[1]))
	})

	return lipgloss.JoinHorizontal(lipgloss.Top,
		components.Panel(fmt.Sprintf("Projects (%d)", len(projects)), strings.TrimRight(list.String(), "\n"), widths[0], false),
		components.Panel(p.Name, detail, widths[1], true),
	)
}

func (a App) projectDetail(p model.Project, width int) string {
	pa := a.engine.ProjectAnalytics(p)
	now := a.engine.Snapshot().TakenAt

	var b strings.Builder
	b.WriteString(cli.Muted(components.Truncate(p.Path, width)) + "\n\n")
	b.WriteString(cli.RenderKV([][2]string{
		{"sessions", cli.FormatNumber(int64(pa.TotalSessions))},
		{"messages", cli.FormatNumber(int64(pa.TotalMessages))},
		{"tokens", cli.FormatTokens(pa.TotalTokens)},
		{"cost", cli.FormatCost(pa.EstimatedCost)},
		{"cache hits", cli.FormatPercent(pa.CacheEfficiency)},
		{"burn", cli.FormatRate(pa.BurnRate)},
		{"first", cli.FormatTime(pa.FirstSession)},
		{"last", cli.FormatAge(pa.LastSession, now)},
		{"blocks", fmt.Sprintf("%d", len(pa.SessionBlocks))},
	}))

	todos := a.engine.Todos(p)
	if len(todos) == 0 {
		return b.String()
	}
	ts := source.TodoStats(todos)
	b.WriteString(fmt.Sprintf("\n  todos %d/%d done (%.0f%%)", ts.Completed, ts.Total, ts.CompletionPercent))
	if ts.HighPriorityPending > 0 {
		b.WriteString(cli.Warn(fmt.Sprintf("  %d high priority pending", ts.HighPriorityPending)))
	}
	b.WriteString("\n")
	for i, item := range source.SortTodos(todos) {
		if i == 8 {
			break
		}
		b.WriteString("  " + todoMark(item.Status) + " " + components.Truncate(item.Content, width-6) + "\n")
	}
	return b.String()
}

func todoMark(s model.TodoStatus) string {
	switch s {
	case model.TodoCompleted:
		return "✓"
	case model.TodoInProgress:
		return "◐"
	default:
		return "○"
	}
}

func (a App) renderDaily(cw int) string {
	t := theme.Active
	days := a.engine.DailyUsage(a.days)

	costs := make([]float64, len(days))
	for i, d := range days {
		// oldest first for the sparkline
		costs[len(days)-1-i] = d.Usage.TotalCost
	}

	rows := make([][]string, 0, len(days))
	var total model.UsageStats
	for _, d := range days {
		total.Add(d.Usage)
		rows = append(rows, []string{
			d.Date,
			cli.FormatDayOfWeek(d.Date),
			cli.FormatNumber(int64(d.Usage.MessageCount)),
			cli.FormatTokens(d.Usage.TotalTokens()),
			cli.FormatCost(d.Usage.TotalCost),
		})
	}
	rows = append(rows, []string{cli.Separator}, []string{
		"Total", "",
		cli.FormatNumber(int64(total.MessageCount)),
		cli.FormatTokens(total.TotalTokens()),
		cli.FormatCost(total.TotalCost),
	})

	spark := components.Sparkline(costs, t.Accent)
	table := cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Messages", "Tokens", "Cost"},
		Rows:    rows,
	})
	return components.Panel(fmt.Sprintf("Last %d days", a.days), spark+"\n\n"+table, cw, false)
}

func (a App) renderModels(cw int) string {
	models := a.engine.ModelUsage()
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{
			m.Model,
			cli.FormatTokens(m.Usage.InputTokens),
			cli.FormatTokens(m.Usage.OutputTokens),
			cli.FormatNumber(int64(m.Usage.MessageCount)),
			cli.FormatCost(m.Usage.TotalCost),
		})
	}
	table := cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output", "Calls", "Cost"},
		Rows:    rows,
	})

	ua := a.engine.Comprehensive()
	half := components.LayoutRow(cw, 2)
	costs := cli.RenderKV([][2]string{
		{"input", cli.FormatCost(ua.Costs.InputCost)},
		{"output", cli.FormatCost(ua.Costs.OutputCost)},
		{"cache write", cli.FormatCost(ua.Costs.CacheCreationCost)},
		{"cache read", cli.FormatCost(ua.Costs.CacheReadCost)},
		{"total", cli.FormatCost(ua.Costs.TotalCost)},
		{"per active day", cli.FormatCost(ua.Costs.DailyAverage)},
		{"projected month", cli.FormatCost(ua.Costs.ProjectedMonthly)},
	})
	cache := cli.RenderKV([][2]string{
		{"written", cli.FormatTokens(ua.Cache.CreationTokens)},
		{"read", cli.FormatTokens(ua.Cache.ReadTokens)},
		{"hit rate", cli.FormatPercent(ua.Cache.HitRate)},
		{"saved", cli.FormatCost(ua.Cache.Savings)},
	})

	return components.Panel("Models", table, cw, false) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top,
			components.Panel("Cost breakdown", costs, half[0], false),
			components.Panel("Prompt cache", cache, half[1], false),
		)
}
