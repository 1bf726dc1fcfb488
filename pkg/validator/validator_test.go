package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

type testStruct struct {
	Name  string `validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age,omitempty" validate:"gte=0,lte=150"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "alice@example.com", Age: 30}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{Email: "alice@example.com", Age: 30}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, []string{"is required"}, fields["Name"])
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "not-an-email", Age: 200}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, []string{"must be a valid email address"}, fields["email"])
	require.Len(t, fields["age"], 1)
	assert.Contains(t, fields["age"][0], "150")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Name'")
	assert.Contains(t, err.Error(), "is required")
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	err := Validate(testStruct{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

type line struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type order struct {
	Items []line `json:"items" validate:"required,min=1,dive"`
}

func TestValidate_NestedPaths(t *testing.T) {
	err := Validate(order{Items: []line{{ProductID: "p1", Quantity: 1}, {Quantity: 0}}})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, []string{"is required"}, fields["items[1].productId"])
	assert.Equal(t, []string{"must be greater than or equal to 1"}, fields["items[1].quantity"])
	assert.NotContains(t, fields, "items[0].productId")
}

func TestValidate_EmptySlice(t *testing.T) {
	err := Validate(order{Items: []line{}})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, []string{"must contain at least 1 entries"}, valErr.Fields()["items"])
}

func TestValidationError_Failure(t *testing.T) {
	err := Validate(testStruct{Name: "Alice"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	vf := valErr.Failure()
	assert.Equal(t, []string{"is required"}, vf.Fields["email"])
	assert.Equal(t, map[string][]string{"email": {"is required"}}, vf.Messages())
}

type oneofStruct struct {
	Store string `validate:"oneof=file redis memory"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(oneofStruct{Store: "s3"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Fields()["Store"], 1)
	assert.Contains(t, valErr.Fields()["Store"][0], "one of")
}
