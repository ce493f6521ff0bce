package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/internal/handler"
	"github.com/noah-isme/wbs-api/internal/middleware"
	"github.com/noah-isme/wbs-api/internal/models"
	"github.com/noah-isme/wbs-api/internal/service"
	"github.com/noah-isme/wbs-api/pkg/config"
	"github.com/noah-isme/wbs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/wbs-api/pkg/middleware/cors"
	"github.com/noah-isme/wbs-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/wbs-api/pkg/middleware/requestid"
)

// Dependencies groups everything the HTTP layer needs.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Auth     middleware.Authenticator
	Handlers Handlers
}

// Handlers are the HTTP endpoint groups.
type Handlers struct {
	Auth     *handler.AuthHandler
	Activity *handler.ActivityHandler
	Metrics  *handler.MetricsHandler
}

// New builds the gin engine with middleware and every route mounted.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	h := deps.Handlers
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limit := limiterFactory(cfg.RateLimit)
	api := r.Group(apiPrefix(cfg.APIPrefix))
	api.Use(limit(cfg.RateLimit.GlobalMax))

	authenticate := middleware.Authenticate(deps.Auth)

	auth := api.Group("/auth")
	{
		register := limit(cfg.RateLimit.RegisterMax)
		login := limit(cfg.RateLimit.LoginMax)

		auth.POST("/register/admin", register, middleware.OptionalAuthenticate(deps.Auth), h.Auth.RegisterAdmin)
		auth.POST("/register/user", register, h.Auth.RegisterUser)
		auth.POST("/login/admin", login, h.Auth.LoginAdmin)
		auth.POST("/login/user", login, h.Auth.LoginUser)
		auth.POST("/refresh-token", h.Auth.Refresh)
		auth.POST("/logout", authenticate, h.Auth.Logout)
		auth.GET("/profile", authenticate, h.Auth.Profile)
		auth.PUT("/update-profile", authenticate, h.Auth.UpdateProfile)
		auth.PUT("/change-password", limit(cfg.RateLimit.ChangePassMax), authenticate, h.Auth.ChangePassword)
	}

	activity := api.Group("/activity", authenticate)
	{
		activity.GET("", h.Activity.List)
		activity.GET("/export", middleware.RequireRoles(models.RoleAdmin), h.Activity.Export)
	}

	return r
}

// limiterFactory returns a constructor for per-route limiters sharing the
// configured window. A disabled config yields pass-through handlers.
func limiterFactory(cfg config.RateLimitConfig) func(max int) gin.HandlerFunc {
	return func(max int) gin.HandlerFunc {
		if !cfg.Enabled {
			max = 0
		}
		return ratelimit.New(max, cfg.Window).Middleware()
	}
}

func apiPrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
