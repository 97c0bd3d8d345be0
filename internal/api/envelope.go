package api

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/http/response"
)

// NewEnvelopeTransformer returns a huma transformer that wraps every
// response body in the success or failure envelope built by f.
func NewEnvelopeTransformer(f response.Formatter) huma.Transformer {
	return func(_ huma.Context, status string, v any) (any, error) {
		switch body := v.(type) {
		case response.Envelope, *response.Envelope:
			return v, nil
		case *APIError:
			return f.Failure(body.Message, body.Details), nil
		case *domainerrors.Error:
			if body.Code == domainerrors.CodeInternal {
				return f.Failure(internalErrorMessage, nil), nil
			}
			return f.Failure(body.Message, body.Details), nil
		case huma.StatusError:
			return f.Failure(body.Error(), nil), nil
		}

		code, _ := strconv.Atoi(status)
		return f.Success(v, successMessage(code)), nil
	}
}

// EnvelopeTransformer wraps bodies using the wall clock.
var EnvelopeTransformer = NewEnvelopeTransformer(response.NewFormatter(nil))

func successMessage(status int) string {
	if status == http.StatusCreated {
		return "Created"
	}
	return response.DefaultSuccessMessage
}
