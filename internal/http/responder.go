package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

var (
	errBadRequestBody    = errors.New("request body is not valid JSON")
	errInvalidStudentID  = errors.New("student id is required")
	errMissingAccessKey  = errors.New("access key is required")
	errClearNotConfirmed = errors.New("clearing every student requires confirm=true")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application and scheduler errors to a status and
// a body naming what went wrong.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		overlapErr *scheduler.OverlapError
		invalidErr *scheduler.InvalidSessionError
		vErr       *application.ValidationError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "UNAUTHORIZED", Message: "a valid access key is required"})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: trimSentinel(err)})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: trimSentinel(err)})
	case errors.As(err, &overlapErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "OVERLAPPING_SESSIONS",
			Message:   overlapErr.Error(),
			Conflict: &conflictDTO{
				Candidate: overlapErr.Candidate.String(),
				Existing:  overlapErr.Existing.String(),
				Internal:  overlapErr.Internal,
			},
		})
	case errors.As(err, &invalidErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_SESSION",
			Message:   err.Error(),
			Errors:    map[string]string{invalidErr.Field: invalidErr.Reason},
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "some fields are invalid",
			Errors:    vErr.FieldErrors,
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// trimSentinel drops the "application: ..." prefix a wrapped sentinel carries.
func trimSentinel(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{application.ErrNotFound, application.ErrAlreadyExists} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *conflictDTO      `json:"conflict,omitempty"`
}

type conflictDTO struct {
	Candidate string `json:"candidate"`
	Existing  string `json:"existing"`
	Internal  bool   `json:"internal"`
}
