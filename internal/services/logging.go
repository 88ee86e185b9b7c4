package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ServiceLogger writes one structured line per service operation
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", service),
	}
}

// LogOperation picks the level from the error class: expected client errors are not logged as errors.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, started time.Time, err error, args ...any) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		switch {
		case IsValidation(err):
			level, status = slog.LevelWarn, "validation_error"
		case IsForbidden(err):
			level, status = slog.LevelWarn, "forbidden"
		case IsNotFound(err):
			level, status = slog.LevelInfo, "not_found"
		case IsConflict(err):
			level, status = slog.LevelInfo, "conflict"
		default:
			level, status = slog.LevelError, "error"
		}
	}

	attrs := []any{
		"operation", operation,
		"status", status,
		"duration", time.Since(started),
	}
	attrs = append(attrs, args...)
	if err != nil {
		attrs = append(attrs, "error", err.Error())

		var storeErr *StoreError
		var ve ValidationErrors
		switch {
		case errors.As(err, &storeErr):
			attrs = append(attrs, "store_op", storeErr.Op)
		case errors.As(err, &ve):
			attrs = append(attrs, "validation_errors_count", len(ve))
		}
	}

	l.logger.Log(ctx, level, operation+" "+status, attrs...)
}
