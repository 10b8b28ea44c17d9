package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/melonicecream/cc-enhanced/internal/tui/theme"
)

// Tab is one dashboard view. Key is its shortcut, taken from Name.
type Tab struct {
	Name string
	Key  rune
}

// Tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Projects", Key: 'p'},
	{Name: "Daily", Key: 'd'},
	{Name: "Models", Key: 'm'},
}

const tabGap = " "

func tabLabel(tab Tab, active bool) string {
	t := theme.Active
	if active {
		return lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Padding(0, 1).Render(tab.Name)
	}
	key := lipgloss.NewStyle().Foreground(t.Accent).Render(string(tab.Key))
	rest := lipgloss.NewStyle().Foreground(t.TextMuted).Render(tab.Name[1:])
	return " " + key + rest + " "
}

// TabBar renders the tab row with active highlighted.
func TabBar(active int) string {
	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = tabLabel(tab, i == active)
	}
	return strings.Join(parts, tabGap)
}

// TabAt returns the tab under column x of the rendered bar, or -1.
func TabAt(x, active int) int {
	pos := 0
	for i, tab := range Tabs {
		w := lipgloss.Width(tabLabel(tab, i == active))
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + len(tabGap)
	}
	return -1
}

// TabByKey returns the tab whose shortcut is key, or -1.
func TabByKey(key string) int {
	for i, tab := range Tabs {
		if key == string(tab.Key) {
			return i
		}
	}
	return -1
}
