package infrastructure

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// GenerateRunID creates the identifier of one report run.
// Run IDs double as directory names, so they are kept short.
func GenerateRunID() string {
	id := uuid.New().String()
	return id[:8]
}

var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,63}$`)

// ValidRunID reports whether id is safe to use as a run directory name.
func ValidRunID(id string) bool {
	return runIDPattern.MatchString(id)
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// LoggerWithContext creates a logger that includes the trace ID from context.
func LoggerWithContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	return logger
}
