// Package response provides the uniform JSON envelope used by every HTTP response.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
)

// DefaultSuccessMessage is used when a handler does not supply its own.
const DefaultSuccessMessage = "Success"

// internalMessage is the only text a client ever sees for an internal failure.
const internalMessage = "Internal server error"

// Envelope is the body of every response.
// Successful responses carry Message and Data; failures carry Error and Details.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Formatter builds envelopes. It holds no mutable state; the clock is
// injectable so tests get stable timestamps.
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a Formatter. A nil clock means time.Now.
func NewFormatter(now func() time.Time) Formatter {
	if now == nil {
		now = time.Now
	}
	return Formatter{now: now}
}

func (f Formatter) timestamp() string {
	now := f.now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339Nano)
}

// Success wraps data in a success envelope.
func (f Formatter) Success(data any, message string) Envelope {
	if message == "" {
		message = DefaultSuccessMessage
	}
	return Envelope{
		Success:   true,
		Message:   message,
		Timestamp: f.timestamp(),
		Data:      data,
	}
}

// Failure builds a failure envelope with an explicit message and optional details.
func (f Formatter) Failure(message string, details any) Envelope {
	return Envelope{
		Success:   false,
		Error:     message,
		Timestamp: f.timestamp(),
		Details:   details,
	}
}

// FromError maps err to a status and failure envelope.
// Domain errors keep their message and details; anything else becomes a
// generic 500.
func (f Formatter) FromError(err error) (int, Envelope) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) && domainErr.Code != domainerrors.CodeInternal {
		return domainErr.HTTPStatus(), f.Failure(domainErr.Message, domainErr.Details)
	}
	return http.StatusInternalServerError, f.Failure(internalMessage, nil)
}

// Write serialises env with the given status.
func (f Formatter) Write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteError maps err and writes the failure envelope. Internal failures
// are logged with their cause.
func (f Formatter) WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, env := f.FromError(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	f.Write(w, status, env, logger)
}

// TooManyRequests writes a 429 failure envelope.
func (f Formatter) TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	f.Write(w, http.StatusTooManyRequests, f.Failure(message, nil), logger)
}

// NotFound writes a 404 failure envelope.
func (f Formatter) NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	f.Write(w, http.StatusNotFound, f.Failure(message, nil), logger)
}
