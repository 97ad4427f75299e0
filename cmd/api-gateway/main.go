package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/placetrack/compliance-api/api/swagger"
	"github.com/placetrack/compliance-api/internal/handler"
	"github.com/placetrack/compliance-api/internal/middleware"
	"github.com/placetrack/compliance-api/internal/repository"
	"github.com/placetrack/compliance-api/internal/scheduler"
	"github.com/placetrack/compliance-api/internal/service"
	"github.com/placetrack/compliance-api/pkg/cache"
	"github.com/placetrack/compliance-api/pkg/config"
	"github.com/placetrack/compliance-api/pkg/database"
	"github.com/placetrack/compliance-api/pkg/logger"
	corsmiddleware "github.com/placetrack/compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/placetrack/compliance-api/pkg/middleware/requestid"
)

// @title Placement Compliance API
// @version 1.0.0
// @description Compliance alert and audit scheduling engine for the placement platform
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Caching is an optimisation; the engine serves everything from
		// storage when Redis is absent.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	invalidation := service.NewCacheInvalidationWorker(cacheService, logr)

	validate := validator.New()

	alertRepo := repository.NewAlertRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	itemRepo := repository.NewTrackedItemRepository(db)

	expiryService := service.NewExpiryService(itemRepo, alertRepo, cfg.Alerts.ReminderThresholdDays, metricsService, logr)
	escalationService := service.NewEscalationService(alertRepo, cfg.Alerts.EscalationAge, metricsService, logr)
	alertService := service.NewAlertService(alertRepo, cacheService, invalidation, logr)
	taskService := service.NewTaskService(taskRepo, cacheService, invalidation, validate, logr)
	auditService := service.NewAuditService(auditRepo, logr)
	schedulerService := service.NewSchedulerService(expiryService, escalationService, alertRepo, taskRepo, invalidation, logr)

	alertHandler := handler.NewAlertHandler(alertService)
	taskHandler := handler.NewTaskHandler(taskService)
	auditHandler := handler.NewAuditHandler(auditService)
	schedulerHandler := handler.NewSchedulerHandler(schedulerService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		api.GET("/alerts", alertHandler.List)
		api.GET("/alerts/:id", alertHandler.Get)
		api.POST("/alerts/:id/acknowledge", alertHandler.Acknowledge)
		api.POST("/alerts/:id/resolve", alertHandler.Resolve)
		api.POST("/alerts/:id/dismiss", alertHandler.Dismiss)

		api.GET("/tasks", taskHandler.List)
		api.POST("/tasks", taskHandler.Create)
		api.GET("/tasks/:id", taskHandler.Get)
		api.POST("/tasks/:id/complete", taskHandler.Complete)
		api.POST("/tasks/:id/cancel", taskHandler.Cancel)

		api.POST("/scheduler/run", schedulerHandler.Run)
		api.GET("/dashboard/stats", schedulerHandler.Stats)

		api.GET("/audit-logs", auditHandler.List)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	invalidation.Start(ctx)
	defer invalidation.Stop()

	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		runner, err = scheduler.New(schedulerService, cfg.Scheduler.GenerateSchedule, cfg.Scheduler.EscalationSchedule, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to build scheduler runner", "error", err)
		}
		runner.Start()
		defer runner.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
