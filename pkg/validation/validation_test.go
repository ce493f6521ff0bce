package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

type sample struct {
	NIK      string `json:"nik" validate:"required,nik"`
	Username string `json:"username" validate:"omitempty,username"`
	Phone    string `json:"phone" validate:"required,idphone"`
	Email    string `json:"email" validate:"isdefault"`
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"081234567890", "+6281234567890", true},
		{"+62 812-3456-7890", "+6281234567890", true},
		{"12", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	v := New()
	err := Struct(v, sample{NIK: "1234567890123456", Username: "budi.s", Phone: "081234567890"}, "")
	assert.NoError(t, err)
}

func TestStructReportsFieldPaths(t *testing.T) {
	v := New()
	err := Struct(v, sample{NIK: "12345", Username: "bad name", Phone: "123", Email: "x@y.z"}, "invalid payload")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	appErr := appErrors.FromError(err)
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, "invalid payload", appErr.Message)

	details, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	byPath := map[string]string{}
	for _, d := range details {
		byPath[d.Path] = d.Message
	}
	assert.Equal(t, "NIK must be exactly 16 digits", byPath["nik"])
	assert.Equal(t, "Invalid username", byPath["username"])
	assert.Equal(t, "Invalid phone number", byPath["phone"])
	assert.Equal(t, "email must not be supplied", byPath["email"])
}

func TestFromErrorNonValidatorError(t *testing.T) {
	err := FromError(errors.New("boom"), "")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrValidation.Message, appErr.Message)
	assert.Nil(t, FromError(nil, ""))
}
