package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/tutor-scheduler/internal/logging"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// serviceLogger prefers the request scoped logger in ctx over base and tags
// it with the service and operation.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	logger = logger.With("service", serviceName, "operation", operation)
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

// logFailure records err at a level matching its kind: expected user errors
// at warn, everything else at error.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	kind := ErrorKind(err)
	level := slog.LevelWarn
	if kind == "unexpected" {
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg, "error", err, "error_kind", kind)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, scheduler.ErrOverlappingSessions):
		return "overlapping_sessions"
	case errors.Is(err, scheduler.ErrInvalidSession):
		return "invalid_session"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
