package swissalloc

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with swissalloc-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return newJSONLogger(os.Stderr, level)
}

func newJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return newTextLogger(os.Stderr, level)
}

func newTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithFamily adds an allocator family field to the logger.
func (l *Logger) WithFamily(family string) *Logger {
	return &Logger{
		Logger: l.Logger.With("family", family),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogRuntimeOpen logs the reservations made by Open.
func (l *Logger) LogRuntimeOpen(ctx context.Context, cfg Config) {
	l.InfoContext(ctx, "runtime opened",
		"heap", humanize.IBytes(cfg.HeapSize),
		"arena", humanize.IBytes(cfg.ArenaSize),
		"memory_limit", limitString(cfg.MemoryLimit),
		"backing", cfg.Backing.String(),
	)
}

// LogRuntimeClose logs the outcome of Close.
func (l *Logger) LogRuntimeClose(ctx context.Context, peak int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "runtime close failed",
			"peak_reserved", humanize.IBytes(uint64(max(peak, 0))),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "runtime closed",
			"peak_reserved", humanize.IBytes(uint64(max(peak, 0))),
		)
	}
}

func limitString(limit uint64) string {
	if limit == 0 {
		return "unlimited"
	}
	return humanize.IBytes(limit)
}
