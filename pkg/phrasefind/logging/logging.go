// Package logging sets up structured logging the way the wider corpus's
// pkg/logger does: slog.NewJSONHandler for daemons, slog.NewTextHandler for
// interactive CLI use, with per-component loggers layered on top of a single
// process-wide default.
package logging

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs the process-wide default logger. format is "json" or
// anything else for plain text. The matcher daemon calls it with "json"; the
// other binaries do not call it and log through the standard log package.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRequestID attaches a request ID (stamped by the matcher daemon's
// google/uuid middleware) to ctx for later retrieval by FromContext.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the default logger, enriched with the request ID
// carried on ctx if any.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if requestID, ok := ctx.Value(contextKey{}).(string); ok {
		l = l.With("request_id", requestID)
	}
	return l
}

// WithComponent returns the default logger tagged with a "component" field.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
