package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrNotFound, "User not found")
	assert.Equal(t, "User not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message, "sentinel must not be mutated")
	assert.True(t, errors.Is(clone, ErrNotFound))
	assert.False(t, errors.Is(clone, ErrUnauthorized))
	assert.Nil(t, Clone(nil, "x"))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "failed to load user")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Equal(t, "failed to load user: db down", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := Clone(ErrTokenRevoked, "")
	assert.Same(t, typed, FromError(fmt.Errorf("gate: %w", typed)))

	generic := FromError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, generic.Status)
	assert.Equal(t, ErrInternal.Message, generic.Message)
}

func TestWithDetails(t *testing.T) {
	details := []string{"nik"}
	err := WithDetails(ErrValidation, "invalid payload", details)
	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
