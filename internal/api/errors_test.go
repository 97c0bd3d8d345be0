package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/http/response"
	"github.com/verbetes/verbete-server/internal/store"
)

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		message     string
		errs        []error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "request validation becomes 400",
			status:      http.StatusUnprocessableEntity,
			message:     "validation failed",
			errs:        []error{&huma.ErrorDetail{Location: "body.title", Message: "expected string"}},
			wantStatus:  http.StatusBadRequest,
			wantCode:    string(domainerrors.CodeValidation),
			wantMessage: "validation failed",
		},
		{
			name:        "domain error keeps its status",
			status:      http.StatusInternalServerError,
			errs:        []error{domainerrors.Conflict("already submitted")},
			wantStatus:  http.StatusConflict,
			wantCode:    string(domainerrors.CodeConflict),
			wantMessage: "already submitted",
		},
		{
			name:        "wrapped domain error",
			status:      http.StatusInternalServerError,
			errs:        []error{fmt.Errorf("handler: %w", domainerrors.Forbidden("not yours"))},
			wantStatus:  http.StatusForbidden,
			wantCode:    string(domainerrors.CodeForbidden),
			wantMessage: "not yours",
		},
		{
			name:        "internal domain error hides its message",
			status:      http.StatusInternalServerError,
			errs:        []error{domainerrors.Internal("disk on fire")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    string(domainerrors.CodeInternal),
			wantMessage: internalErrorMessage,
		},
		{
			name:        "store not found",
			status:      http.StatusInternalServerError,
			errs:        []error{fmt.Errorf("get: %w", store.ErrNotFound)},
			wantStatus:  http.StatusNotFound,
			wantCode:    string(domainerrors.CodeNotFound),
			wantMessage: "Resource not found",
		},
		{
			name:        "unknown failure is generic",
			status:      http.StatusInternalServerError,
			message:     "sql: connection refused",
			wantStatus:  http.StatusInternalServerError,
			wantCode:    string(domainerrors.CodeInternal),
			wantMessage: internalErrorMessage,
		},
		{
			name:        "plain unauthorized",
			status:      http.StatusUnauthorized,
			message:     "Missing authorization header",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    string(domainerrors.CodeUnauthorized),
			wantMessage: "Missing authorization header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newAPIError(tt.status, tt.message, tt.errs...)
			apiErr, ok := err.(*APIError)
			require.True(t, ok)

			assert.Equal(t, tt.wantStatus, apiErr.GetStatus())
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Error())
		})
	}
}

func TestNewAPIError_Details(t *testing.T) {
	err := newAPIError(http.StatusUnprocessableEntity, "validation failed",
		&huma.ErrorDetail{Location: "body.title", Message: "expected length >= 1"},
		&huma.ErrorDetail{Message: "unexpected property"},
	)
	apiErr := err.(*APIError)
	assert.Equal(t, map[string]string{
		"body.title": "expected length >= 1",
		"request":    "unexpected property",
	}, apiErr.Details)

	err = newAPIError(http.StatusInternalServerError, "",
		domainerrors.ValidationWithDetails("validation failed", map[string]string{"birth_date": "invalid date"}))
	assert.Equal(t, map[string]string{"birth_date": "invalid date"}, err.(*APIError).Details)
}

func TestEnvelopeTransformer(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	transform := NewEnvelopeTransformer(response.NewFormatter(func() time.Time { return now }))

	t.Run("success", func(t *testing.T) {
		out, err := transform(nil, "200", map[string]int{"n": 1})
		require.NoError(t, err)
		env := out.(response.Envelope)
		assert.True(t, env.Success)
		assert.Equal(t, response.DefaultSuccessMessage, env.Message)
		assert.Equal(t, map[string]int{"n": 1}, env.Data)
		assert.Equal(t, "2024-03-01T12:00:00Z", env.Timestamp)
	})

	t.Run("created", func(t *testing.T) {
		out, err := transform(nil, "201", "x")
		require.NoError(t, err)
		assert.Equal(t, "Created", out.(response.Envelope).Message)
	})

	t.Run("api error", func(t *testing.T) {
		apiErr := &APIError{status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Submission not found"}
		out, err := transform(nil, "404", apiErr)
		require.NoError(t, err)
		env := out.(response.Envelope)
		assert.False(t, env.Success)
		assert.Equal(t, "Submission not found", env.Error)
		assert.Nil(t, env.Data)
	})

	t.Run("internal domain error", func(t *testing.T) {
		out, err := transform(nil, "500", domainerrors.Internal("pq: relation missing"))
		require.NoError(t, err)
		assert.Equal(t, internalErrorMessage, out.(response.Envelope).Error)
	})

	t.Run("envelope passes through", func(t *testing.T) {
		in := response.Envelope{Success: false, Error: "Too many requests"}
		out, err := transform(nil, "429", in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}
