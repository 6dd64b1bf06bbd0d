package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/seokjun4321/ReValue-sub000/internal/config"
	"github.com/seokjun4321/ReValue-sub000/internal/database"
	"github.com/seokjun4321/ReValue-sub000/internal/docs"
	"github.com/seokjun4321/ReValue-sub000/internal/handlers"
	"github.com/seokjun4321/ReValue-sub000/internal/middleware"
	"github.com/seokjun4321/ReValue-sub000/pkg/models"
	"github.com/seokjun4321/ReValue-sub000/internal/scheduler"
	"github.com/seokjun4321/ReValue-sub000/internal/services"
	"github.com/seokjun4321/ReValue-sub000/internal/validation"
)

const patternAnalysisJob = "pattern-analysis"

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	scheduler *scheduler.Scheduler
	router    *gin.Engine

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svc, err := services.New(cfg, app.logger, db, prometheus.DefaultRegisterer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.handlers = handlers.New(app.logger, svc)

	if cfg.Scheduler.Enabled {
		app.scheduler = scheduler.New(app.logger, scheduler.NewRedisLocker(db.Redis), cfg.Scheduler.LockTTL)
		if err := app.scheduler.Add(patternAnalysisJob, cfg.Scheduler.PatternAnalysis, svc.PatternAnalyzer.AnalyzeAll); err != nil {
			app.Shutdown(context.Background())
			return nil, err
		}
	}

	app.router = setupRouter(cfg, app.logger, app.handlers, svc.Auth, svc.RateLimit, svc.Validator)

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches the background workers. They run until Shutdown.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.workers.Add(2)
	go func() {
		defer a.workers.Done()
		err := a.services.MessageBus.ConsumeOrders(ctx, a.services.OrderIngestion.HandleOrderCompleted)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithError(err).Error("Order consumer stopped")
		}
	}()
	go func() {
		defer a.workers.Done()
		a.services.Health.CollectSystemMetrics(ctx, 15*time.Second)
	}()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.logger.Info("Background workers started")
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for background workers")
	}

	var errs []error
	if a.services != nil && a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.WithError(err).Error("Error during shutdown")
		return err
	}
	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	h *handlers.Handlers,
	auth middleware.TokenValidator,
	limiter middleware.RateLimiter,
	validator *validation.SchemaValidator,
) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	vm := middleware.NewValidationMiddleware(validator)

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Security.CORS))

	router.GET("/health", h.Health.Check)
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	docs.NewSchemaHandler(validator).RegisterRoutes(router)

	api := router.Group("/api/v1")
	api.POST("/auth/token", vm.ValidateAuthToken(), h.Auth.IssueToken)

	protected := api.Group("")
	protected.Use(middleware.Auth(auth, logger))
	protected.Use(middleware.RateLimit(limiter, logger))
	protected.Use(vm.ValidateParams())
	{
		users := protected.Group("/users/:userId", middleware.RequireSelfOrService("userId"))
		{
			users.GET("/feed", h.Feed.Get)
			users.POST("/recommendations", h.Recommendation.Generate)
			users.GET("/recommendations", h.Recommendation.List)
			users.GET("/preferences", h.Preference.Get)
			users.PUT("/preferences", vm.ValidatePreferencesUpdate(), h.Preference.Update)
		}

		protected.POST("/recommendations/:id/track", vm.ValidateTrackRequest(), h.Recommendation.Track)

		admin := protected.Group("/admin", middleware.RequireRole(models.RoleService))
		{
			admin.POST("/patterns/:userId/analyze", h.Admin.AnalyzePatterns)
		}
	}

	return router
}
