package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wbs-api/internal/middleware"
	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
	"github.com/noah-isme/wbs-api/pkg/response"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

type authService interface {
	RegisterUser(ctx context.Context, req models.RegisterUserRequest) (*models.User, error)
	RegisterAdmin(ctx context.Context, actor *models.User, req models.RegisterAdminRequest) (*models.User, error)
	LoginAdmin(ctx context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error)
	LoginUser(ctx context.Context, req models.UserLoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, userID, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshTokenResponse, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
}

// CookieOptions controls the attributes of the refresh token cookie.
type CookieOptions struct {
	Secure bool
	Domain string
	Path   string
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieOptions
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieOptions) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{service: svc, cookie: cookie}
}

// RegisterAdmin godoc
// @Summary Register staff account
// @Description Creates an Admin, Pimpinan or Staf account. Anonymous calls are accepted only while no Admin exists.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterAdminRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/register/admin [post]
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var req models.RegisterAdminRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()

	actor, _ := middleware.CurrentUser(c)
	user, err := h.service.RegisterAdmin(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "User registered successfully", user)
}

// RegisterUser godoc
// @Summary Register Nasabah account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterUserRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/register/user [post]
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req models.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()

	user, err := h.service.RegisterUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "User registered successfully", user)
}

// LoginAdmin godoc
// @Summary Authenticate staff
// @Description Authenticate Admin, Pimpinan or Staf by username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login/admin [post]
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	var req models.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.LoginAdmin(c.Request.Context(), req)
	h.respondLogin(c, res, err)
}

// LoginUser godoc
// @Summary Authenticate Nasabah
// @Description Authenticate Nasabah by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.UserLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login/user [post]
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req models.UserLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.LoginUser(c.Request.Context(), req)
	h.respondLogin(c, res, err)
}

func (h *AuthHandler) respondLogin(c *gin.Context, res *models.LoginResponse, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setRefreshCookie(c, res.RefreshToken)
	response.OK(c, "User logged in successfully", res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revokes the bearer token and clears the refresh token cookie
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	refresh, _ := c.Cookie(RefreshCookieName)
	if err := h.service.Logout(c.Request.Context(), user.ID, middleware.AccessToken(c), refresh); err != nil {
		response.Error(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.OK(c, "User logged out successfully", nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchanges the refresh token cookie for a new access token and rotates the cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(RefreshCookieName)
	res, err := h.service.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setRefreshCookie(c, res.RefreshToken)
	response.OK(c, "Refresh token generated successfully", res)
}

// Profile godoc
// @Summary Current user profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, "User profile", user)
}

// UpdateProfile godoc
// @Summary Update current user profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/update-profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile updated successfully", updated)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), user.ID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Password changed successfully", nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, int(service.RefreshTokenTTL.Seconds()), h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

// bindJSON only decodes. Field validation runs in the service.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "request body is required"))
			return false
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "malformed JSON payload"))
		return false
	}
	return true
}
