package logging

import (
	"context"
	"log/slog"

	"shortcast/internal/services"
)

// WithContext returns a logger enriched with any video, job, and request
// identifiers carried by the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if id, ok := services.VideoIDFromContext(ctx); ok {
		logger = logger.With(Int64(FieldVideoID, id))
	}
	if kind, ok := services.JobKindFromContext(ctx); ok {
		logger = logger.With(String(FieldJobKind, kind))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		logger = logger.With(String(FieldRequestID, id))
	}
	return logger
}
