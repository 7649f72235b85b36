package shufflego

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with shuffle-specific helpers.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogFlush logs a group flush from a key buffer to the backing store.
func (l *Logger) LogFlush(ctx context.Context, key, groupID uint32, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"key", key,
			"rows", rows,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"key", key,
			"group_id", groupID,
			"rows", rows,
		)
	}
}

// LogFinish logs completion of the shuffle write phase.
func (l *Logger) LogFinish(ctx context.Context, keys, groups int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "finish failed",
			"keys", keys,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "finish completed",
			"keys", keys,
			"groups", groups,
		)
	}
}

// LogReplay logs the start of a per-key replay.
func (l *Logger) LogReplay(ctx context.Context, key uint32, groups int) {
	l.DebugContext(ctx, "replay started",
		"key", key,
		"groups", groups,
	)
}
