package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON and every failure through
// writeError, so the API has one error shape:
//   {"error": "not_found", "message": "post not found with id abc123"}
//
// Validation failures also carry the failing field, and "fields" when
// several fields failed at once:
//   {"error": "validation_error", "message": "title too short", "field": "title",
//    "fields": {"title": "title too short", "content": "spam-like content"}}

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sakif/blog-platform/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string            `json:"message"` // Human-readable description
	Field   string            `json:"field,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON sends data with the given status code. render.Status stores the
// status on the request context; render.JSON writes header and body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// errorStatus maps an error kind to an HTTP status and error type.
//
// ORDER MATTERS: ErrTimeout also matches ErrStore, so it is checked first.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer never knows about status codes; this is the only place
// the translation happens for the JSON API.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType := errorStatus(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		slog.Error("unexpected handler error", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	resp := ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	}
	if status == http.StatusBadRequest {
		if fields := apperror.Fields(err); len(fields) > 1 {
			resp.Fields = fields
		}
	}
	writeJSON(w, r, status, resp)
}

// decodeJSON reads the request body into v. A malformed body is a validation
// failure on the whole request.
func decodeJSON(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
