package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/response"
)

// RequireRoles admits the request only when the authenticated account holds
// one of roles. It must run after Authenticate.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		if err := service.Authorize(user.Role, roles...); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}
