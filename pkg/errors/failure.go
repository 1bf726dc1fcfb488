package errors

import (
	"errors"
	"sort"
	"strings"
)

// GeneralKey is the reserved key under which a general failure message is
// reported when failures are rendered as a field map.
const GeneralKey = "general"

// UnexpectedMessage is reported when a remote call fails for a reason the
// server did not describe (transport error, undecodable body, panic).
const UnexpectedMessage = "An unexpected error occurred. Please try again."

// Failure is the structured descriptor returned by every public storefront
// operation that can fail. It is either a *ValidationFailure or a
// *GeneralFailure.
type Failure interface {
	error
	// Messages renders the failure as field name -> ordered messages.
	Messages() map[string][]string
	isFailure()
}

// FieldError is a single server-supplied validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationFailure carries per-field messages, grouped by field with the
// server's order preserved inside each field.
type ValidationFailure struct {
	Fields map[string][]string
}

// NewValidationFailure groups field errors by field name.
func NewValidationFailure(errs []FieldError) *ValidationFailure {
	fields := make(map[string][]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field] = append(fields[fe.Field], fe.Message)
	}
	return &ValidationFailure{Fields: fields}
}

func (f *ValidationFailure) Error() string {
	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(f.Fields[name], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f *ValidationFailure) Unwrap() error { return ErrInvalidInput }

func (f *ValidationFailure) Messages() map[string][]string {
	out := make(map[string][]string, len(f.Fields))
	for name, msgs := range f.Fields {
		out[name] = append([]string(nil), msgs...)
	}
	return out
}

func (f *ValidationFailure) isFailure() {}

// GeneralFailure carries a single message for banner display.
type GeneralFailure struct {
	Message string
	Err     error
}

func (f *GeneralFailure) Error() string { return f.Message }

func (f *GeneralFailure) Unwrap() error { return f.Err }

func (f *GeneralFailure) Messages() map[string][]string {
	return map[string][]string{GeneralKey: {f.Message}}
}

func (f *GeneralFailure) isFailure() {}

// Classify maps any error to a Failure. Server-described errors keep the
// server message, or fallback when the server sent none. Everything else
// becomes a general failure with UnexpectedMessage. A nil error yields nil.
func Classify(err error, fallback string) Failure {
	if err == nil {
		return nil
	}

	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return vf
	}

	var gf *GeneralFailure
	if errors.As(err, &gf) {
		if gf.Message == "" {
			return &GeneralFailure{Message: fallback, Err: gf.Err}
		}
		return gf
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if msg == "" {
			msg = fallback
		}
		return &GeneralFailure{Message: msg, Err: err}
	}

	return &GeneralFailure{Message: UnexpectedMessage, Err: err}
}
