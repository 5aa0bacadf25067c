package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/repository"
	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/cache"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	"github.com/noah-isme/busbuddy-api/pkg/database"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
)

func main() {
	var (
		source  string
		timeout time.Duration
	)

	flag.StringVar(&source, "source", "", "GTFS static feed: local zip path or http(s) URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Import timeout")
	flag.Parse()

	if source == "" {
		log.Fatal("-source is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.Open(cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var cacheSvc *service.CacheService
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, cached integrity reports will expire on their own", zap.Error(err))
	} else if client != nil {
		defer client.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, cfg.Redis.Namespace, logr), nil, cfg.Integrity.CacheTTL, logr, cfg.Integrity.CacheEnabled)
	}

	importer := service.NewGTFSImportService(repository.NewRouteRepository(db), cacheSvc, logr)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	data, err := importer.Load(ctx, source)
	if err != nil {
		logr.Fatal("failed to load feed", zap.String("source", source), zap.Error(err))
	}
	summary, err := importer.Import(ctx, data)
	if err != nil {
		logr.Fatal("import failed", zap.Error(err))
	}

	logr.Info("gtfs import complete",
		zap.Int("routes", summary.Routes),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Strings("skipped", summary.Skipped),
	)
}
