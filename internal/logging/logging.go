// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Formats accepted by New.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Options selects the log level and output format.
type Options struct {
	Level  string
	Format string
}

// ParseLevel maps debug/info/warn/error to a slog.Level, defaulting to info.
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

// New returns a logger writing to w. With an empty format, colorized tint
// output is used when w is a terminal and JSON otherwise.
func New(opts Options, w io.Writer) *slog.Logger {
	level := ParseLevel(opts.Level)

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatPretty
		}
	}

	if format == FormatPretty {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
