package service

import (
	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

// Authorize checks role against the allowed set. An empty set admits every
// authenticated role.
func Authorize(role models.UserRole, allowed ...models.UserRole) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
