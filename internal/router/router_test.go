package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/wbs-api/internal/handler"
	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	"github.com/noah-isme/wbs-api/pkg/config"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

type tokenTable map[string]*models.User

func (t tokenTable) Authenticate(_ context.Context, raw string) (*models.User, error) {
	if user, ok := t[raw]; ok {
		return user, nil
	}
	return nil, appErrors.ErrInvalidToken
}

func newTestEngine(rate config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api", RateLimit: rate}
	tokens := tokenTable{
		"admin":   {ID: "a1", Name: "Admin", Role: models.RoleAdmin},
		"nasabah": {ID: "n1", Name: "Budi", Role: models.RoleNasabah},
	}
	metrics := service.NewMetricsService()
	return New(Dependencies{
		Config:  cfg,
		Metrics: metrics,
		Auth:    tokens,
		Handlers: Handlers{
			Auth:     handler.NewAuthHandler(nil, handler.CookieOptions{}),
			Activity: handler.NewActivityHandler(nil),
			Metrics:  handler.NewMetricsHandler(metrics, nil),
		},
	})
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterProtectsRoutes(t *testing.T) {
	r := newTestEngine(config.RateLimitConfig{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", "", "").Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/auth/profile", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/auth/profile", "forged", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/auth/profile", "nasabah", "").Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/auth/logout", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPut, "/api/auth/change-password", "", "{}").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/activity/export", "nasabah", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/activity", "", "").Code)
}

func TestRouterMalformedJSON(t *testing.T) {
	r := newTestEngine(config.RateLimitConfig{})
	rec := do(r, http.MethodPost, "/api/auth/login/user", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRateLimitsLogin(t *testing.T) {
	r := newTestEngine(config.RateLimitConfig{Enabled: true, Window: 15 * time.Minute, GlobalMax: 100, LoginMax: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/auth/login/admin", "", "{").Code)
	}
	rec := do(r, http.MethodPost, "/api/auth/login/admin", "", "{")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "please try again after 15 minutes")

	// Other routes keep their own budget.
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/auth/profile", "admin", "").Code)
}

func TestAPIPrefix(t *testing.T) {
	assert.Equal(t, "/api", apiPrefix("/api/"))
	assert.Equal(t, "/v1", apiPrefix("v1"))
	assert.Equal(t, "/", apiPrefix(""))
}
