package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing the authenticated account.
	ContextUserKey = "currentUser"
	// ContextTokenKey holds the raw bearer token so logout can revoke it.
	ContextTokenKey = "accessToken"
)

// Authenticator resolves a bearer token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, error)
}

// Authenticate protects routes by requiring a valid, unrevoked access token.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, raw)
		c.Next()
	}
}

// OptionalAuthenticate attaches the account when a valid token is present but
// never blocks the request.
func OptionalAuthenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}

		if user, err := auth.Authenticate(c.Request.Context(), raw); err == nil {
			c.Set(ContextUserKey, user)
			c.Set(ContextTokenKey, raw)
		}
		c.Next()
	}
}

// CurrentUser returns the account attached by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// AccessToken returns the raw bearer token attached by Authenticate.
func AccessToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
