// Package app wires the pipeline, its services and the HTTP handlers from
// configuration. The API server and the CLIs share it.
package app

import (
	"context"
	"fmt"

	"cdp-analytics/config"
	"cdp-analytics/controllers"
	"cdp-analytics/etl"
	"cdp-analytics/routes"
	"cdp-analytics/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *zap.Logger
	Transform *services.TransformService
	Metrics   *services.MetricsService
	Customers *services.CustomerService
	Export    *services.ExportService

	redis *redis.Client
}

// Build connects the optional backends (redis, minio, twilio) that are
// configured and falls back to local behaviour for the rest.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, DB: db, Logger: logger}

	var cache services.MetricsCache = services.NopCache{}
	if cfg.Redis.Enabled() {
		a.redis = services.NewRedisClient(cfg.Redis)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, metrics will not be cached", zap.Error(err))
			a.redis.Close()
			a.redis = nil
		} else {
			cache = services.NewRedisCache(a.redis, cfg.ETL.MetricsCacheTTL)
			logger.Info("Redis connected", zap.String("addr", a.redis.Options().Addr))
		}
	}

	a.Metrics = services.NewMetricsService(db, cache, logger)
	a.Customers = services.NewCustomerService(db)
	a.Export = services.NewExportService(db)

	deps := services.TransformDeps{
		Pipeline: etl.NewPipeline(db, logger, etl.WithBatchSize(cfg.ETL.BatchSize)),
		Verifier: etl.NewVerifier(db, cfg.ETL.SpendTolerance),
		Runs:     services.NewGormRunStore(db),
		Notifier: services.NewNotifier(cfg.Twilio, logger),
		Cache:    a.Metrics,
		Logger:   logger,
	}

	if cfg.MinIO.Enabled() {
		client, err := services.NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		archive := services.NewArchiveService(client, cfg.MinIO.Bucket, a.Export, logger)
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Warn("minio unavailable, snapshots will not be archived", zap.Error(err))
		} else {
			deps.Archiver = archive
		}
	}

	a.Transform = services.NewTransformService(deps, cfg.ETL.VerifyAfterRun)
	return a, nil
}

// Handlers builds the controllers mounted by routes.SetupRouter.
func (a *App) Handlers() routes.Handlers {
	return routes.Handlers{
		Auth:      controllers.NewAuthController(a.DB, a.Config.JWT),
		Dashboard: controllers.NewDashboardController(a.Metrics, a.Logger),
		Customers: controllers.NewCustomerController(a.Customers, a.Export, a.Logger),
		ETL:       controllers.NewETLController(a.Transform, a.Logger),
		Reports:   controllers.NewReportController(a.Transform, a.Logger),
		Ready: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// Close releases the redis client. The database pool belongs to the caller.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
