package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")

	// ErrAuthRequired is returned when an authenticated operation is called
	// without a session, or the API rejected the bearer credential.
	ErrAuthRequired = errors.New("authentication required")
)

// AppError represents a structured error returned by the remote API, keeping
// the HTTP status and the server-supplied message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FromStatus builds an AppError for a non-2xx response. The sentinel is
// chosen from the status code; message is kept verbatim and may be empty.
func FromStatus(status int, message string) *AppError {
	code, sentinel := classifyStatus(status)
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

func classifyStatus(status int) (string, error) {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return "INVALID_INPUT", ErrInvalidInput
	case status == http.StatusUnauthorized:
		return "UNAUTHORIZED", ErrUnauthorized
	case status == http.StatusForbidden:
		return "FORBIDDEN", ErrForbidden
	case status == http.StatusNotFound:
		return "NOT_FOUND", ErrNotFound
	case status == http.StatusConflict:
		return "CONFLICT", ErrConflict
	case status == http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE", ErrServiceUnavail
	case status >= 500:
		return "INTERNAL_ERROR", ErrInternal
	default:
		return fmt.Sprintf("HTTP_%d", status), nil
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return FromStatus(http.StatusBadRequest, message)
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return FromStatus(http.StatusNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return FromStatus(http.StatusServiceUnavailable, message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// AuthRequiredError reports that the caller must authenticate first. ReturnTo
// is the location the user should come back to after logging in.
type AuthRequiredError struct {
	ReturnTo string
}

// AuthRequired creates an AuthRequiredError carrying the return location.
func AuthRequired(returnTo string) *AuthRequiredError {
	return &AuthRequiredError{ReturnTo: returnTo}
}

func (e *AuthRequiredError) Error() string {
	if e.ReturnTo == "" {
		return ErrAuthRequired.Error()
	}
	return fmt.Sprintf("%s (return to %s)", ErrAuthRequired.Error(), e.ReturnTo)
}

func (e *AuthRequiredError) Unwrap() error {
	return ErrAuthRequired
}

// IsAuthRequired reports whether err asks the caller to authenticate.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
