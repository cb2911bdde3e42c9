package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/apperror"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", apperror.ValidationFailed("title", "title too short"), http.StatusBadRequest, "validation_error"},
		{"unauthenticated", apperror.Unauthenticated("sign in required"), http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", apperror.Forbidden("nope"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("post", "x"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "alice"), http.StatusConflict, "conflict"},
		{"timeout", apperror.StoreFailure("list", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"store", apperror.StoreFailure("list", errors.New("disk")), http.StatusInternalServerError, "internal_error"},
		{"wrapped", fmt.Errorf("outer: %w", apperror.NotFound("comment", "y")), http.StatusNotFound, "not_found"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestWriteError_Body(t *testing.T) {
	t.Run("joined validation errors list every field", func(t *testing.T) {
		err := errors.Join(
			apperror.ValidationFailed("title", "title too generic"),
			apperror.ValidationFailed("content", "spam-like content"),
		)
		rr := httptest.NewRecorder()
		writeError(rr, httptest.NewRequest(http.MethodPost, "/api/posts", nil), err)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "title too generic", body.Message)
		assert.Equal(t, "title", body.Field)
		assert.Equal(t, map[string]string{"title": "title too generic", "content": "spam-like content"}, body.Fields)
	})

	t.Run("internal details are hidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeError(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil), errors.New("sql: SELECT secret FROM users"))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "secret")
	})

	t.Run("store failures keep the cause out of the body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeError(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil),
			apperror.StoreFailure("listing posts", errors.New("database is locked")))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "locked")
	})
}
