// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "CC_ENHANCED_LOG"

// Options configures Setup.
type Options struct {
	Level  string    // debug, info, warn, error
	JSON   bool      // JSON records instead of key=value text
	Writer io.Writer // defaults to stderr
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
// Supports: debug, info, warn, error (case-insensitive)
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds a logger from opts, installs it as the slog default and
// returns it.
func Setup(opts Options) *slog.Logger {
	level := opts.Level
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// Discard installs a logger that drops everything. The dashboard uses it so
// log lines never land on the alternate screen.
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}
