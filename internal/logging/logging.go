// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/vango-dev/reactor/internal/config"
)

// Logger is the process logger plus the resources it owns.
type Logger struct {
	*slog.Logger

	// Level can be changed while the process runs.
	Level *slog.LevelVar

	closers []io.Closer
}

// New builds a logger writing to w in the configured format. When
// cfg.File is set, every record is also appended to that file as JSON.
func New(cfg config.LogConfig, w io.Writer) (*Logger, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler

	// terminal
	switch cfg.Format {
	case "json":
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	default:
		handlers = append(handlers, slog.NewTextHandler(w, opts))
	}

	l := &Logger{Level: level}

	// file
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G302: log files are meant to be readable
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		l.closers = append(l.closers, f)
	}

	l.Logger = slog.New(slogmulti.Fanout(handlers...))
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}
