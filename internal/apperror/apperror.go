// Package apperror defines the error kinds shared by every layer of the blog core.
//
// Services and repositories return *AppError values wrapping one of the sentinels
// below. Façades map the sentinel (via errors.Is) to a transport-specific response:
// an HTTP status for the JSON API, a re-rendered form or redirect for the web pages.
package apperror

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStore           = errors.New("store error")

	// ErrTimeout also matches ErrStore: a timed out store call is a store failure
	// that callers may want to tell apart.
	ErrTimeout = fmt.Errorf("store timeout: %w", ErrStore)
)

type AppError struct {
	Err     error  // sentinel kind, possibly joined with the underlying cause
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when an operation needs an identity and the
// caller is anonymous.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// StoreFailure wraps a backend error. Deadline errors become ErrTimeout so a slow
// store surfaces as a distinct kind instead of a generic failure. The cause stays
// in the chain for logging but never reaches the Message.
func StoreFailure(op string, cause error) *AppError {
	kind := ErrStore
	msg := fmt.Sprintf("%s: storage unavailable", op)
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = ErrTimeout
		msg = fmt.Sprintf("%s: storage timed out", op)
	}
	return &AppError{
		Err:     fmt.Errorf("%w: %w", kind, cause),
		Message: msg,
	}
}

// Fields flattens validation failures into field -> message. It understands
// errors produced with errors.Join so a form can show every failing field at once.
// The first message for a field wins.
func Fields(err error) map[string]string {
	out := make(map[string]string)
	collectFields(err, out)
	return out
}

func collectFields(err error, out map[string]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFields(e, out)
		}
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) && errors.Is(appErr, ErrValidation) {
		field := appErr.Field
		if field == "" {
			field = "form"
		}
		if _, seen := out[field]; !seen {
			out[field] = appErr.Message
		}
	}
}
