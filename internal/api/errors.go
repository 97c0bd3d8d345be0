package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/store"
)

const internalErrorMessage = "Internal server error"

// APIError is the huma.StatusError every failed operation returns.
// EnvelopeTransformer turns it into a failure envelope.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler makes huma build APIErrors from domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = newAPIError
}

func newAPIError(status int, message string, errs ...error) huma.StatusError {
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			if domainErr.Code == domainerrors.CodeInternal {
				return &APIError{
					status:  http.StatusInternalServerError,
					Code:    string(domainerrors.CodeInternal),
					Message: internalErrorMessage,
				}
			}
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}

		if errors.Is(err, store.ErrNotFound) {
			return &APIError{
				status:  http.StatusNotFound,
				Code:    string(domainerrors.CodeNotFound),
				Message: "Resource not found",
			}
		}
	}

	// Request validation failures from huma arrive as 422; clients of this
	// API expect 400 with per-field details.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		message = internalErrorMessage
	}

	apiErr := &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
	if details := requestErrorDetails(errs); len(details) > 0 {
		apiErr.Details = details
	}
	return apiErr
}

// requestErrorDetails collects huma's per-location validation messages,
// keyed by the offending location ("body.title", "query.limit").
func requestErrorDetails(errs []error) map[string]string {
	var details map[string]string
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !errors.As(err, &detail) {
			continue
		}
		if details == nil {
			details = make(map[string]string)
		}
		key := detail.Location
		if key == "" {
			key = "request"
		}
		details[key] = detail.Message
	}
	return details
}

// statusToCode maps HTTP status codes to domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeTooManyRequests)
	default:
		if status < http.StatusInternalServerError {
			return string(domainerrors.CodeBadRequest)
		}
		return string(domainerrors.CodeInternal)
	}
}
