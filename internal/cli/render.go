package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette (Flexoki dark).
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorTextDim)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	activeStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
)

// Separator is a row value that draws a horizontal rule.
const Separator = "---"

// Table is a bordered table. The first column is left aligned, the rest
// right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Warn renders a warning line.
func Warn(s string) string { return warnStyle.Render(s) }

// Active renders a highlighted status marker.
func Active(s string) string { return activeStyle.Render(s) }

func columnWidths(t Table) []int {
	n := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > n && !isSeparator(row) {
			n = len(row)
		}
	}
	widths := make([]int, n)
	grow := func(i int, s string) {
		if w := lipgloss.Width(s); w > widths[i] {
			widths[i] = w
		}
	}
	for i, h := range t.Headers {
		grow(i, h)
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row {
			grow(i, cell)
		}
	}
	return widths
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == Separator
}

func rule(b *strings.Builder, widths []int, left, mid, right string) {
	b.WriteString(dimStyle.Render(left))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(dimStyle.Render(mid))
		}
	}
	b.WriteString(dimStyle.Render(right))
	b.WriteByte('\n')
}

func pad(s string, width int, left bool) string {
	gap := width - lipgloss.Width(s)
	if gap < 0 {
		gap = 0
	}
	if left {
		return " " + s + strings.Repeat(" ", gap) + " "
	}
	return " " + strings.Repeat(" ", gap) + s + " "
}

func line(b *strings.Builder, widths []int, cells []string, style lipgloss.Style, header bool) {
	b.WriteString(dimStyle.Render("│"))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(style.Render(pad(cell, w, header || i == 0)))
		b.WriteString(dimStyle.Render("│"))
	}
	b.WriteByte('\n')
}

// RenderTable renders t with box-drawing borders. Rows equal to
// []string{Separator} become horizontal rules.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}
	widths := columnWidths(t)

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	rule(&b, widths, "╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(&b, widths, t.Headers, headerStyle, true)
		rule(&b, widths, "├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			rule(&b, widths, "├", "┼", "┤")
			continue
		}
		line(&b, widths, row, valueStyle, false)
	}
	rule(&b, widths, "╰", "┴", "╯")
	return b.String()
}

// RenderBar renders a fixed-width bar filled to frac (clamped to [0, 1]).
func RenderBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac = max(0, min(1, frac))
	filled := int(frac * float64(width))
	return activeStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

// RenderSparkline draws values as unicode block heights.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	levels := []rune("▁▂▃▄▅▆▇█")
	top := values[0]
	for _, v := range values[1:] {
		top = max(top, v)
	}
	if top <= 0 {
		top = 1
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(v / top * float64(len(levels)-1))
		b.WriteRune(levels[max(0, min(len(levels)-1, idx))])
	}
	return b.String()
}

// RenderKV renders aligned "label  value" lines.
func RenderKV(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "  %s  %s\n", mutedStyle.Render(pad(p[0], width, true)), valueStyle.Render(p[1]))
	}
	return b.String()
}
