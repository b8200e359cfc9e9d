// Package logging builds the process logger. It is a thin layer over
// log/slog: callers get a plain *slog.Logger and never see handlers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects level, output format and destination.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty means stderr
	// Writer overrides File and stderr; used by tests.
	Writer io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for opts and a closer for the log file, if one was
// opened. The closer is always non-nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.Writer != nil:
		w = opts.Writer
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, closer = f, f
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h), closer, nil
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger { return slog.New(slog.DiscardHandler) }

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
