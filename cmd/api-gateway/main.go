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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/L1nkStart/optimizacion-combinatoria/api/swagger"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/handler"
	internalmiddleware "github.com/L1nkStart/optimizacion-combinatoria/internal/middleware"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/repository"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/service"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/cache"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/database"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/events"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/logger"
	corsmiddleware "github.com/L1nkStart/optimizacion-combinatoria/pkg/middleware/cors"
	reqidmiddleware "github.com/L1nkStart/optimizacion-combinatoria/pkg/middleware/requestid"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Builds weekly course timetables with a hybrid genetic search.
// @BasePath /
// @schemes http
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
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Catalog.Source == config.CatalogSourceDatabase {
		conn, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()
		db = conn
		checks["postgres"] = db.PingContext
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
	defer cacheRepo.Close() //nolint:errcheck
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	publisher, err := events.New(events.Config{
		URL:            cfg.Events.AMQPURL,
		Queue:          cfg.Events.Queue,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, logr)
	if err != nil {
		return fmt.Errorf("connect event broker: %w", err)
	}
	defer publisher.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()

	var catalogs *service.CatalogService
	if db != nil {
		catalogs = service.NewCatalogService(cfg.Catalog, repository.NewCatalogRepository(db), cacheRepo, validate, metrics, logr)
	} else {
		catalogs = service.NewCatalogService(cfg.Catalog, nil, nil, validate, metrics, logr)
	}
	if _, err := catalogs.Resolve(ctx, nil); err != nil {
		logr.Warn("configured catalog is not usable yet", zap.String("source", cfg.Catalog.Source), zap.Error(err))
	}

	timetables := service.NewTimetableService(service.TimetableConfig{Solver: cfg.Solver, Runs: cfg.Runs}, catalogs, validate, metrics, publisher, logr)
	timetables.Start(ctx)
	defer timetables.Stop()

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare export storage: %w", err)
	}
	exports := service.NewExportService(timetables, files, storage.NewLinkSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, RetainFor: cfg.Exports.SignedURLTTL}, metrics, logr)
	go exports.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	auth := internalmiddleware.Anonymous()
	if cfg.JWT.Enabled {
		auth = internalmiddleware.JWT(service.NewTokenService(cfg.JWT))
	} else {
		logr.Warn("authentication disabled, every caller is treated as admin")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	timetableHandler := handler.NewTimetableHandler(timetables, exports, catalogs, cfg.CORS.AllowedOrigins, logr)
	handler.RegisterTimetableRoutes(r.Group(cfg.APIPrefix), timetableHandler, auth)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "catalog_source", cfg.Catalog.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
