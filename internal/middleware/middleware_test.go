package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, raw string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[raw]; ok {
		return user, nil
	}
	return nil, appErrors.ErrInvalidToken
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		id := ""
		if user != nil {
			id = user.ID
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "token": AccessToken(c)})
	})
	router.GET("/", handlers...)
	return router
}

func perform(router http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*models.User{"good": {ID: "u1", Role: models.RoleStaf}}}
	router := newRouter(Authenticate(auth))

	rec := perform(router, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "u1", body["id"])
	assert.Equal(t, "good", body["token"])

	rec = perform(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["message"])

	rec = perform(router, "Basic good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(router, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decode(t, rec)["message"])
}

func TestAuthenticateRevokedToken(t *testing.T) {
	router := newRouter(Authenticate(stubAuthenticator{err: appErrors.ErrTokenRevoked}))

	rec := perform(router, "Bearer revoked")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "token has been revoked", body["message"])
	assert.Equal(t, false, body["success"])
}

func TestOptionalAuthenticate(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*models.User{"good": {ID: "u1", Role: models.RoleAdmin}}}
	router := newRouter(OptionalAuthenticate(auth))

	assert.Equal(t, "u1", decode(t, perform(router, "Bearer good"))["id"])

	rec := perform(router, "Bearer bad")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode(t, rec)["id"])

	assert.Equal(t, http.StatusOK, perform(router, "").Code)
}

func TestRequireRoles(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*models.User{
		"admin":   {ID: "a1", Role: models.RoleAdmin},
		"nasabah": {ID: "n1", Role: models.RoleNasabah},
	}}
	router := newRouter(Authenticate(auth), RequireRoles(models.RoleAdmin, models.RolePimpinan))

	assert.Equal(t, http.StatusOK, perform(router, "Bearer admin").Code)

	rec := perform(router, "Bearer nasabah")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	open := newRouter(Authenticate(auth), RequireRoles())
	assert.Equal(t, http.StatusOK, perform(open, "Bearer nasabah").Code)
}

func TestRequireRolesWithoutUser(t *testing.T) {
	router := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, perform(router, "").Code)
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	router := newRouter(Metrics(metrics))
	assert.Equal(t, http.StatusOK, perform(router, "").Code)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	assert.NotPanics(t, func() {
		perform(newRouter(Metrics(nil)), "")
	})
}
