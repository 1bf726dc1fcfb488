package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error body is read.
const maxErrorBody = 1 << 20

// ErrorBody is the error envelope of the commerce API: either a general
// {message} or per-field {errors: [{field, message}]}.
type ErrorBody struct {
	Message string                 `json:"message"`
	Errors  []apperrors.FieldError `json:"errors"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and
// translates it into an error. A non-empty errors array yields a
// *apperrors.ValidationFailure; otherwise an *apperrors.AppError carrying
// the status and the server message (empty when the body had none).
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var body ErrorBody
	if json.Unmarshal(bodyBytes, &body) != nil {
		return apperrors.FromStatus(resp.StatusCode, "")
	}

	if len(body.Errors) > 0 {
		return apperrors.NewValidationFailure(body.Errors)
	}
	return apperrors.FromStatus(resp.StatusCode, body.Message)
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
