package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeTooManyRequests, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeForStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, CodeTooManyRequests, CodeForStatus(http.StatusTooManyRequests))
	assert.Equal(t, CodeInternal, CodeForStatus(http.StatusTeapot))
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Forbidden("only the owner can edit")

	assert.True(t, Is(err, ErrForbidden))
	assert.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("update: %w", err)
	assert.True(t, Is(wrapped, ErrForbidden))
}

func TestError_WithCause(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, CodeInternal, "load submission")

	assert.Equal(t, "load submission: unexpected EOF", err.Error())
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestError_WithDetailsDoesNotMutate(t *testing.T) {
	base := Validation("invalid")
	detailed := base.WithDetails(map[string]string{"birth_date": "is required"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.Equal(t, http.StatusBadRequest, detailed.HTTPStatus())
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(io.EOF))
}
