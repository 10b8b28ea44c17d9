package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

// ColorForPct maps utilisation to green, yellow, orange or red.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Red
	case pct >= 0.7:
		return t.Orange
	case pct >= 0.5:
		return t.Yellow
	default:
		return t.Green
	}
}

// ProgressBar renders pct (0-1) as a solid bar colored by level, followed by
// the percentage.
func ProgressBar(pct float64, width int) string {
	pct = max(0, min(1, pct))
	color := ColorForPct(pct)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithoutPercentage(),
		progress.WithWidth(max(width, 5)),
	)
	bar.EmptyColor = string(theme.Active.TextDim)
	label := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf(" %3.0f%%", pct*100))
	return bar.ViewAs(pct) + label
}
