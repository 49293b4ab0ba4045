package spatialgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with spatialgo-specific context.
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

// WithEntity adds an entity field to the logger (useful for tagging operations).
func (l *Logger) WithEntity(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("entity", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogApply logs a batch apply operation.
func (l *Logger) LogApply(ctx context.Context, changes, restructured int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch apply failed",
			"changes", changes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch apply completed",
			"changes", changes,
			"restructured", restructured,
		)
	}
}

// LogRemove logs an entity removal.
func (l *Logger) LogRemove(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"entity", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"entity", id,
		)
	}
}

// LogRangeQuery logs a range query.
func (l *Logger) LogRangeQuery(ctx context.Context, radius float64, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "range query failed",
			"radius", radius,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "range query completed",
			"radius", radius,
			"results", resultsFound,
		)
	}
}

// LogKNearestQuery logs a k-nearest query.
func (l *Logger) LogKNearestQuery(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "k-nearest query failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "k-nearest query completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogRayQuery logs a ray query.
func (l *Logger) LogRayQuery(ctx context.Context, maxDistance float64, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ray query failed",
			"max_distance", maxDistance,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "ray query completed",
			"max_distance", maxDistance,
			"results", resultsFound,
		)
	}
}

// LogDepthSaturation logs a partition that exceeds the split threshold at
// maximum depth.
func (l *Logger) LogDepthSaturation(x, y int32, count int) {
	l.Warn("partition saturated at max depth",
		"cell_x", x,
		"cell_y", y,
		"count", count,
	)
}
