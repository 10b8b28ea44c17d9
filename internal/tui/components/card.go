// Package components holds small rendering helpers shared by the dashboard tabs.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

// Metric is one label/value pair shown in a card.
type Metric struct {
	Label string
	Value string
	Note  string
}

// LayoutRow splits total into n widths that sum to exactly total.
func LayoutRow(total, n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = total / n
		if i < total%n {
			widths[i]++
		}
	}
	return widths
}

func cardStyle(outer int, focused bool) lipgloss.Style {
	t := theme.Active
	border := t.Border
	if focused {
		border = t.BorderAccent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(max(outer-2, 10)).
		Padding(0, 1)
}

// MetricRow renders metrics as equal-width cards side by side.
func MetricRow(metrics []Metric, total int) string {
	if len(metrics) == 0 {
		return ""
	}
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	note := lipgloss.NewStyle().Foreground(t.TextDim)

	widths := LayoutRow(total, len(metrics))
	cards := make([]string, len(metrics))
	for i, m := range metrics {
		body := label.Render(m.Label) + "\n" + value.Render(m.Value)
		if m.Note != "" {
			body += "\n" + note.Render(m.Note)
		}
		cards[i] = cardStyle(widths[i], false).Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// Panel renders body in a titled card.
func Panel(title, body string, outer int, focused bool) string {
	t := theme.Active
	content := body
	if title != "" {
		content = lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true).Render(title) + "\n" + body
	}
	return cardStyle(outer, focused).Render(content)
}

// InnerWidth is the text width available inside a panel of the given
// outer width.
func InnerWidth(outer int) int {
	return max(outer-4, 10)
}

// Sparkline draws values as block heights in color.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	levels := []rune("▁▂▃▄▅▆▇█")
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(levels)-1))
		b.WriteRune(levels[max(0, min(len(levels)-1, idx))])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// Truncate shortens s to limit cells, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}
