package strata

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with strata-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithLayer adds depth and kind fields to the logger.
func (l *Logger) WithLayer(depth int, kind string) *Logger {
	return &Logger{
		Logger: l.Logger.With("depth", depth, "kind", kind),
	}
}

// LogLayer logs the construction or loading of a single layer.
func (l *Logger) LogLayer(ctx context.Context, depth int, kind string, param, nodes int, bytes int64, resident bool) {
	l.DebugContext(ctx, "layer ready",
		"depth", depth,
		"kind", kind,
		"param", param,
		"nodes", nodes,
		"bytes", bytes,
		"resident", resident,
	)
}

// LogDemotion logs a layer kept on disk because the memory budget is exhausted.
func (l *Logger) LogDemotion(ctx context.Context, depth int, bytes int64, err error) {
	l.WarnContext(ctx, "layer kept on disk",
		"depth", depth,
		"bytes", bytes,
		"reason", err,
	)
}

// LogBuild logs a build operation.
func (l *Logger) LogBuild(ctx context.Context, entries, layers int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"entries", entries,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"entries", entries,
			"layers", layers,
			"duration", duration,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"written", bytes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index saved",
			"bytes", bytes,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, layers, resident int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index loaded",
			"layers", layers,
			"resident", resident,
			"on_disk", layers-resident,
		)
	}
}
