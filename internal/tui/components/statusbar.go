package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

// StatusBar renders key hints on the left and status on the right.
func StatusBar(width int, hints, status string) string {
	t := theme.Active
	left := " " + hints
	right := status + " "
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return lipgloss.NewStyle().Foreground(t.TextMuted).Render(left + strings.Repeat(" ", gap) + right)
}
