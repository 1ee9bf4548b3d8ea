package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/repositories"
)

// Response is the uniform wire contract for every endpoint.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the error envelope; it carries the same fields plus an
// errors list.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// Error is the typed error surfaced by handler bodies. A single converter
// turns it into the error envelope; no handler writes its own error body.
type Error struct {
	Status  int
	Message string
	Errs    []string
}

func (e *Error) Error() string {
	return e.Message
}

func apiErr(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// pathID reads a path parameter and rejects values that cannot be a stored
// identifier, so malformed input never reaches a UUID column.
func pathID(r *http.Request, name string) (string, error) {
	id := r.PathValue(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", apiErr(http.StatusBadRequest, "invalid identifier format")
	}
	return id, nil
}

// handlerFunc lets handler bodies return errors instead of writing ad-hoc
// error JSON.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(r.Context(), w, err)
		}
	}
}

// Unauthorized writes the standard 401 envelope. The authentication
// middleware uses it as its rejection handler.
func Unauthorized() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, apiErr(http.StatusUnauthorized, "unauthorized request"))
	})
}

// TooManyRequests writes the standard 429 envelope. The rate limiting
// middleware uses it as its rejection handler.
func TooManyRequests() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, apiErr(http.StatusTooManyRequests, "too many requests, slow down"))
	})
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) error {
	writeJSON(ctx, w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
	return nil
}

// writeError converts any error a handler surfaced into the error envelope.
// Wrapped internal causes are logged but never returned to the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logging.FromContext(ctx)

	var apiError *Error
	switch {
	case errors.As(err, &apiError):
	case errors.Is(err, auth.ErrUnauthorized):
		apiError = apiErr(http.StatusUnauthorized, "unauthorized request")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, repositories.ErrNotFound):
		apiError = apiErr(http.StatusNotFound, "resource not found")
	case errors.Is(err, repositories.ErrConflict):
		apiError = apiErr(http.StatusConflict, "resource already exists")
	default:
		logger.Error("request failed with internal error", "error", err)
		apiError = apiErr(http.StatusInternalServerError, "something went wrong")
	}

	if apiError.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", apiError.Status, "message", apiError.Message)
	} else {
		logger.Warn("request returned client error", "status", apiError.Status, "message", apiError.Message)
	}

	errs := apiError.Errs
	if errs == nil {
		errs = []string{}
	}

	writeJSON(ctx, w, apiError.Status, ErrorResponse{
		StatusCode: apiError.Status,
		Message:    apiError.Message,
		Success:    false,
		Errors:     errs,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
