// Package log builds the slog logger of a run: text on stdout and, when a
// directory is configured, a rotating JSON file next to it.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the JSON log file inside the logs directory.
const FileName = "wrfxsect.slog"

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%s: invalid log level", s)
	}
}

// Logger is a slog logger that owns its log file, if any.
type Logger struct {
	*slog.Logger
	LogFile string

	file io.Closer
}

// New creates a logger writing text to stdout. When dir is not empty,
// records are also written as JSON to a rotating file in dir.
func New(level, dir string) (*Logger, error) {
	return newLogger(os.Stdout, level, dir)
}

func newLogger(stdout io.Writer, level, dir string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	l := &Logger{}
	var h slog.Handler = slog.NewTextHandler(stdout, opts)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		w := &lumberjack.Logger{
			Filename:   filepath.Join(dir, FileName),
			MaxSize:    32, // MB
			MaxBackups: 3,
			Compress:   true,
		}
		h = fanout{h, slog.NewJSONHandler(w, opts)}
		l.LogFile, l.file = w.Filename, w
	}
	l.Logger = slog.New(h)
	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fanout passes records to every handler that is enabled for them.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
