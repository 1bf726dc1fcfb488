package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden,
		ErrConflict, ErrInternal, ErrServiceUnavail, ErrAuthRequired,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "HTTP_418", Message: "teapot"}
	assert.Equal(t, "HTTP_418: teapot", appErr.Error())
}

func TestFromStatus_Sentinels(t *testing.T) {
	tests := []struct {
		status   int
		code     string
		sentinel error
	}{
		{http.StatusBadRequest, "INVALID_INPUT", ErrInvalidInput},
		{http.StatusUnprocessableEntity, "INVALID_INPUT", ErrInvalidInput},
		{http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized},
		{http.StatusForbidden, "FORBIDDEN", ErrForbidden},
		{http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{http.StatusConflict, "CONFLICT", ErrConflict},
		{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrServiceUnavail},
		{http.StatusBadGateway, "INTERNAL_ERROR", ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := FromStatus(tt.status, "msg")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, "msg", err.Message)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestFromStatus_UnknownStatusHasNoSentinel(t *testing.T) {
	err := FromStatus(http.StatusTeapot, "")
	assert.Equal(t, "HTTP_418", err.Code)
	assert.Nil(t, err.Unwrap())
}

func TestNotFound(t *testing.T) {
	err := NotFound("address", "42")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "address with id 42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrForbidden, "delete address")
	assert.Equal(t, "delete address: forbidden", err.Error())
	assert.ErrorIs(t, err, ErrForbidden)
}

// --- AuthRequired ---

func TestAuthRequired_UnwrapsToSentinel(t *testing.T) {
	err := AuthRequired("/checkout")
	assert.True(t, IsAuthRequired(err))
	assert.Contains(t, err.Error(), "/checkout")

	wrapped := fmt.Errorf("load cart: %w", err)
	assert.True(t, IsAuthRequired(wrapped))

	var are *AuthRequiredError
	require.True(t, errors.As(wrapped, &are))
	assert.Equal(t, "/checkout", are.ReturnTo)
}

func TestIsAuthRequired_OtherErrors(t *testing.T) {
	assert.False(t, IsAuthRequired(ErrUnauthorized))
	assert.False(t, IsAuthRequired(nil))
}

// --- Failure taxonomy ---

func TestNewValidationFailure_GroupsByField(t *testing.T) {
	vf := NewValidationFailure([]FieldError{
		{Field: "email", Message: "is required"},
		{Field: "password", Message: "too short"},
		{Field: "email", Message: "must be valid"},
	})

	assert.Equal(t, []string{"is required", "must be valid"}, vf.Fields["email"])
	assert.Equal(t, []string{"too short"}, vf.Fields["password"])
	assert.Equal(t, "validation failed: email: is required, must be valid; password: too short", vf.Error())
	assert.ErrorIs(t, vf, ErrInvalidInput)
}

func TestValidationFailure_MessagesIsACopy(t *testing.T) {
	vf := NewValidationFailure([]FieldError{{Field: "email", Message: "bad"}})
	msgs := vf.Messages()
	msgs["email"][0] = "changed"
	assert.Equal(t, "bad", vf.Fields["email"][0])
}

func TestGeneralFailure_Messages(t *testing.T) {
	gf := &GeneralFailure{Message: "Invalid credentials"}
	assert.Equal(t, map[string][]string{GeneralKey: {"Invalid credentials"}}, gf.Messages())
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil, "Login failed"))
	})

	t.Run("validation passes through", func(t *testing.T) {
		vf := NewValidationFailure([]FieldError{{Field: "email", Message: "taken"}})
		got := Classify(fmt.Errorf("signup: %w", vf), "Signup failed")
		assert.Same(t, vf, got)
	})

	t.Run("app error keeps server message", func(t *testing.T) {
		got := Classify(FromStatus(http.StatusUnauthorized, "Invalid credentials"), "Login failed")
		require.IsType(t, &GeneralFailure{}, got)
		assert.Equal(t, "Invalid credentials", got.Error())
		assert.ErrorIs(t, got, ErrUnauthorized)
	})

	t.Run("app error without message uses fallback", func(t *testing.T) {
		got := Classify(FromStatus(http.StatusBadRequest, ""), "Login failed")
		assert.Equal(t, "Login failed", got.Error())
	})

	t.Run("empty general failure uses fallback", func(t *testing.T) {
		got := Classify(&GeneralFailure{}, "Signup failed")
		assert.Equal(t, "Signup failed", got.Error())
	})

	t.Run("transport error is unexpected", func(t *testing.T) {
		got := Classify(errors.New("dial tcp: connection refused"), "Login failed")
		assert.Equal(t, UnexpectedMessage, got.Error())
	})
}
