package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testFormatter() Formatter {
	return NewFormatter(func() time.Time { return fixedNow })
}

func TestFormatter_Success(t *testing.T) {
	env := testFormatter().Success(map[string]int{"id": 7}, "")

	assert.True(t, env.Success)
	assert.Equal(t, DefaultSuccessMessage, env.Message)
	assert.Equal(t, "2024-03-01T12:00:00Z", env.Timestamp)
	assert.Empty(t, env.Error)
	assert.NotNil(t, env.Data)
}

func TestFormatter_FromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", domainerrors.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{"bad request", domainerrors.BadRequest("malformed body"), http.StatusBadRequest, "malformed body"},
		{"unauthorized", domainerrors.Unauthorized("missing token"), http.StatusUnauthorized, "missing token"},
		{"forbidden", domainerrors.Forbidden("not the owner"), http.StatusForbidden, "not the owner"},
		{"not found", domainerrors.NotFound("submission not found"), http.StatusNotFound, "submission not found"},
		{"conflict", domainerrors.Conflict("not a draft"), http.StatusConflict, "not a draft"},
		{"rate limited", domainerrors.TooManyRequests("slow down"), http.StatusTooManyRequests, "slow down"},
		{"internal domain", domainerrors.Wrap(errors.New("disk I/O"), domainerrors.CodeInternal, "save failed"), http.StatusInternalServerError, internalMessage},
		{"plain error", errors.New("sql: connection refused"), http.StatusInternalServerError, internalMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := testFormatter().FromError(tt.err)

			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Error)
			assert.Empty(t, env.Message)
		})
	}
}

func TestFormatter_FromErrorKeepsDetails(t *testing.T) {
	err := domainerrors.ValidationWithDetails("validation failed", map[string]string{"birth_date": "is required"})

	_, env := testFormatter().FromError(err)

	assert.Equal(t, map[string]string{"birth_date": "is required"}, env.Details)
}

func TestFormatter_Write(t *testing.T) {
	w := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := testFormatter()

	f.Write(w, http.StatusCreated, f.Success(map[string]string{"id": "1"}, "Created"), logger)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Created", body["message"])
	assert.Contains(t, body, "timestamp")
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "details")
}

func TestFormatter_WriteErrorShape(t *testing.T) {
	w := httptest.NewRecorder()

	testFormatter().WriteError(w, domainerrors.NotFound("article not found"), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "article not found", body["error"])
	assert.NotContains(t, body, "message")
	assert.NotContains(t, body, "data")
}

func TestFormatter_TooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	testFormatter().TooManyRequests(w, "Too many requests", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestFormatter_ZeroValueUsesWallClock(t *testing.T) {
	var f Formatter

	env := f.Success(nil, "ok")

	_, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	assert.NoError(t, err)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit, total int
		want               Pagination
	}{
		{"exact pages", 1, 10, 20, Pagination{Page: 1, Limit: 10, Total: 20, Pages: 2}},
		{"partial last page", 2, 10, 25, Pagination{Page: 2, Limit: 10, Total: 25, Pages: 3}},
		{"defaults", 0, 0, 5, Pagination{Page: 1, Limit: 10, Total: 5, Pages: 1}},
		{"empty", 1, 10, 0, Pagination{Page: 1, Limit: 10, Total: 0, Pages: 0}},
		{"negative inputs", -3, -1, 11, Pagination{Page: 1, Limit: 10, Total: 11, Pages: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.page, tt.limit, tt.total))
		})
	}
}

func TestNewPage_NilItems(t *testing.T) {
	p := NewPage[string](nil, NewPagination(1, 10, 0))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"pagination":{"page":1,"limit":10,"total":0,"pages":0}}`, string(data))
}
