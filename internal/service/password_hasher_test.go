package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(CostFunc(func() int { return bcrypt.MinCost }))

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", first)
	assert.NotEqual(t, first, second, "each hash carries its own salt")
	assert.True(t, h.Verify("secret1", first))
	assert.True(t, h.Verify("secret1", second))
	assert.False(t, h.Verify("secret2", first))
	assert.False(t, h.Verify("secret1", ""))
}

func TestPasswordHasherReadsCostPerCall(t *testing.T) {
	cost := bcrypt.MinCost
	h := NewPasswordHasher(CostFunc(func() int { return cost }))

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	got, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, got)

	cost = bcrypt.MinCost + 1
	hash, err = h.Hash("secret1")
	require.NoError(t, err)
	got, err = bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, got)
}

func TestPasswordHasherRejectsShortPasswords(t *testing.T) {
	h := NewPasswordHasher(CostFunc(func() int { return bcrypt.MinCost }))

	_, err := h.Hash("12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
