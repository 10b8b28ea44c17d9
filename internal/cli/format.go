// Package cli formats usage values and renders tables for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatTokens abbreviates a token count: 1234 -> "1.2K", 1234567 -> "1.2M".
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	for _, u := range []struct {
		div    float64
		suffix string
	}{
		{1e9, "B"},
		{1e6, "M"},
		{1e3, "K"},
	} {
		if float64(abs) >= u.div {
			return fmt.Sprintf("%.1f%s", float64(n)/u.div, u.suffix)
		}
	}
	return strconv.FormatInt(n, 10)
}

// FormatNumber adds thousands separators.
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatCost formats a USD amount. Small amounts keep more precision so a
// single message is still visible.
func FormatCost(cost float64) string {
	switch {
	case cost >= 1000:
		return "$" + humanize.Comma(int64(math.Round(cost)))
	case cost >= 100:
		return fmt.Sprintf("$%.0f", cost)
	case cost >= 10:
		return fmt.Sprintf("$%.1f", cost)
	case cost > 0 && cost < 0.01:
		return fmt.Sprintf("$%.4f", cost)
	default:
		return fmt.Sprintf("$%.2f", cost)
	}
}

// FormatPercent formats a value that is already a percentage.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatRatio formats a 0-1 ratio as a percentage.
func FormatRatio(r float64) string {
	return FormatPercent(r * 100)
}

// FormatDuration renders d as "1h 2m", "2m" or "45s".
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "0s"
	}
	hours := secs / 3600
	mins := (secs % 3600) / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm", mins)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatAge renders t relative to now, e.g. "3 hours ago". Zero times are "never".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatTime renders t in local time, or "-" when zero.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// FormatRate renders a tokens-per-minute burn rate.
func FormatRate(perMinute float64) string {
	if perMinute <= 0 {
		return "-"
	}
	return FormatTokens(int64(math.Round(perMinute))) + "/min"
}

// FormatDayOfWeek returns the short weekday name of a 2006-01-02 date.
func FormatDayOfWeek(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "???"
	}
	return d.Weekday().String()[:3]
}
