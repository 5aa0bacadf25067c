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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/busbuddy-api/api/swagger"
	"github.com/noah-isme/busbuddy-api/internal/handler"
	"github.com/noah-isme/busbuddy-api/internal/repository"
	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/cache"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	"github.com/noah-isme/busbuddy-api/pkg/database"
	"github.com/noah-isme/busbuddy-api/pkg/jobs"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
	"github.com/noah-isme/busbuddy-api/pkg/storage"
)

// @title BusBuddy API
// @version 1.0.0
// @description School transportation scheduling, conflict detection and data integrity auditing
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, integrity cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	app, err := build(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to wire services", zap.Error(err))
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, db, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	auth      *service.AuthService
	metrics   *service.MetricsService
	schedules *handler.ActivityScheduleHandler
	conflicts *handler.ConflictHandler
	integrity *handler.IntegrityHandler
	audits    *handler.AuditHandler
	routes    *handler.RouteHandler
	calendar  *handler.CalendarHandler
	system    *handler.MetricsHandler

	queue *jobs.Queue
}

func (a *application) shutdown() {
	if a.queue != nil {
		a.queue.Stop()
	}
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Integrity.CacheTTL, logr, cfg.Integrity.CacheEnabled)

	routeRepo := repository.NewRouteRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	scheduleRepo := repository.NewActivityScheduleRepository(db)

	integritySvc := service.NewIntegrityService(service.IntegrityRepositories{
		Routes:     routeRepo,
		Activities: activityRepo,
		Students:   repository.NewStudentRepository(db),
		Drivers:    repository.NewDriverRepository(db),
		Vehicles:   repository.NewVehicleRepository(db),
	}, cfg.Integrity, cacheSvc, metrics, logr)
	conflictSvc := service.NewConflictService(repository.NewAssignmentRepository(db), logr)

	app := &application{
		auth: service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		metrics:   metrics,
		schedules: handler.NewActivityScheduleHandler(service.NewActivityScheduleService(scheduleRepo, conflictSvc, cacheSvc, validate, logr)),
		conflicts: handler.NewConflictHandler(conflictSvc),
		integrity: handler.NewIntegrityHandler(integritySvc),
		routes:    handler.NewRouteHandler(service.NewRouteService(routeRepo, logr)),
		calendar:  handler.NewCalendarHandler(service.NewCalendarService(activityRepo, cfg.Integrity.Location(), logr)),
		system:    handler.NewMetricsHandler(metrics),
	}

	if !cfg.Audits.Enabled {
		return app, nil
	}

	files, err := storage.NewLocalStorage(cfg.Audits.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("audit storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Audits.SignedURLSecret, cfg.Audits.SignedURLTTL)
	exporter := service.NewExportService(files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Audits.SignedURLTTL,
	}, logr)

	auditRepo := repository.NewAuditRunRepository(db)
	worker := service.NewAuditWorker(auditRepo, integritySvc, exporter, metrics, cfg.Audits.WorkerRetries, logr)
	queue := jobs.NewQueue(service.AuditJobType, worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Audits.WorkerConcurrency,
		MaxRetries:  cfg.Audits.WorkerRetries,
		RetryDelay:  2 * time.Second,
		Logger:      logr,
		OnExhausted: worker.OnExhausted,
	})
	queue.Start(ctx)
	app.queue = queue
	app.system.WithAuditQueue(queue)

	auditSvc := service.NewAuditService(auditRepo, queue, exporter, validate, logr, service.AuditServiceConfig{
		ResultTTL:       cfg.Audits.SignedURLTTL,
		CleanupInterval: cfg.Audits.CleanupInterval,
	})
	if recovered := auditSvc.RecoverPendingRuns(ctx); recovered > 0 {
		logr.Info("re-enqueued pending audit runs", zap.Int("count", recovered))
	}
	auditSvc.StartCleanup(ctx)
	app.audits = handler.NewAuditHandler(auditSvc)

	return app, nil
}
