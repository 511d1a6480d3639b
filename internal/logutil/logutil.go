// Package logutil builds the process logger: JSON lines to the log file and
// a human console view on stderr.
package logutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

const DefaultFileName = "keen.log"

type Config struct {
	Level string
	// Path is the JSON log file. Empty disables file logging.
	Path string
	// Console writes a colored view to Stderr. Nil Stderr means os.Stderr.
	Console bool
	Stderr  io.Writer
}

// New returns the logger and a closer for the log file. The closer is never
// nil.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if p := strings.TrimSpace(cfg.Path); p != "" {
		f, err := openLogFile(p)
		if err != nil {
			return nil, nopCloser{}, err
		}
		closer = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	if cfg.Console {
		w := cfg.Stderr
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Prefix:          "keen",
		}))
	}

	switch len(handlers) {
	case 0:
		return slog.New(discardHandler{}), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(fanout(handlers)), closer, nil
	}
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q", s)
	}
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, x := range h {
		if x.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, x := range h {
		if !x.Enabled(ctx, r.Level) {
			continue
		}
		if err := x.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, x := range h {
		out[i] = x.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, x := range h {
		out[i] = x.WithGroup(name)
	}
	return out
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
