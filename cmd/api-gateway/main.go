package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/wbs-api/api/swagger"
	"github.com/noah-isme/wbs-api/internal/handler"
	"github.com/noah-isme/wbs-api/internal/repository"
	"github.com/noah-isme/wbs-api/internal/router"
	"github.com/noah-isme/wbs-api/internal/service"
	"github.com/noah-isme/wbs-api/pkg/cache"
	"github.com/noah-isme/wbs-api/pkg/config"
	"github.com/noah-isme/wbs-api/pkg/database"
	"github.com/noah-isme/wbs-api/pkg/events"
	"github.com/noah-isme/wbs-api/pkg/jobs"
	"github.com/noah-isme/wbs-api/pkg/logger"
	"github.com/noah-isme/wbs-api/pkg/revocation"
	"github.com/noah-isme/wbs-api/pkg/validation"
)

// @title WBS Portal API
// @version 1.0.0
// @description Authentication and authorization for the whistleblowing portal
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	if err := run(cfg, logr); err != nil {
		logr.Error("api gateway stopped", zap.Error(err))
		_ = logr.Sync()
		os.Exit(1)
	}
	_ = logr.Sync()
}

// run wires the gateway and blocks until the process is signalled. Every
// resource it opens is released through its defers, including on startup errors.
func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return fmt.Errorf("invalid token configuration: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var store service.RevocationStore
	switch cfg.Revocation.Backend {
	case config.RevocationBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		store = repository.NewRedisRevocationRepository(client, logr)
		checks["redis"] = cache.Pinger{Client: client}
	default:
		registry := revocation.NewRegistry(revocation.Options{SweepInterval: cfg.Revocation.SweepInterval, Logger: logr})
		registry.Start(ctx)
		defer registry.Stop()
		metrics.RegisterRevocationSize(registry.Len)
		store = repository.NewMemoryRevocationRepository(registry)
	}
	logr.Info("revocation backend ready", zap.String("backend", cfg.Revocation.Backend))

	var queue *jobs.Queue
	if cfg.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		defer publisher.Close()
		queue = jobs.NewQueue("activity-events", service.PublishJobHandler(publisher), jobs.QueueConfig{
			Workers:    2,
			MaxRetries: 3,
			RetryDelay: time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		logr.Info("activity events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.AuditTopic))
	}

	activitySvc := service.NewActivityService(repository.NewActivityLogRepository(db), queue, logr)
	revocationSvc := service.NewRevocationService(store, tokens, metrics, logr)
	authSvc := service.NewAuthService(
		repository.NewUserRepository(db),
		tokens,
		service.NewPasswordHasher(cfg),
		revocationSvc,
		activitySvc,
		validation.New(),
		metrics,
		logr,
	)

	engine := router.New(router.Dependencies{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Auth:    authSvc,
		Handlers: router.Handlers{
			Auth: handler.NewAuthHandler(authSvc, handler.CookieOptions{
				Secure: cfg.Cookie.Secure,
				Domain: cfg.Cookie.Domain,
				Path:   cfg.Cookie.Path,
			}),
			Activity: handler.NewActivityHandler(activitySvc),
			Metrics:  handler.NewMetricsHandler(metrics, checks),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
