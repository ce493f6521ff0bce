package service

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

// MinPasswordLength is the shortest plaintext accepted for hashing.
const MinPasswordLength = 6

// CostSource supplies the bcrypt work factor. It is consulted on every Hash
// call so operators can raise the cost without restarting.
type CostSource interface {
	SaltRounds() int
}

// CostFunc adapts a plain function to CostSource.
type CostFunc func() int

// SaltRounds implements CostSource.
func (f CostFunc) SaltRounds() int { return f() }

// PasswordHasher performs salted one-way hashing with bcrypt.
type PasswordHasher struct {
	cost CostSource
}

// NewPasswordHasher constructs a hasher. A nil source falls back to bcrypt's default cost.
func NewPasswordHasher(cost CostSource) *PasswordHasher {
	if cost == nil {
		cost = CostFunc(func() int { return bcrypt.DefaultCost })
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	if utf8.RuneCountInString(plain) < MinPasswordLength {
		return "", appErrors.Clone(appErrors.ErrValidation, "Password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost.SaltRounds())
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
