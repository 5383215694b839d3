package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dispensary-crm/internal/bootstrap"
	"github.com/angelmondragon/dispensary-crm/internal/cron"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/db"
	"github.com/angelmondragon/dispensary-crm/pkg/instance"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/metrics"
	"github.com/angelmondragon/dispensary-crm/pkg/migrate"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
)

const jobTimeout = 30 * time.Minute

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	deps := bootstrap.CRMDeps{
		DB:      dbClient,
		Redis:   redisClient,
		Metrics: metrics.NewCRMMetrics(prometheus.DefaultRegisterer),
	}

	mongoClient, err := bootstrap.OpenMongo(bootCtx, cfg, logg)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		defer func() {
			if err := mongoClient.Close(); err != nil {
				logg.Error(bootCtx, "error closing mongo", err)
			}
		}()
		deps.Mongo = mongoClient
	}

	warehouse, err := bootstrap.OpenWarehouse(bootCtx, cfg, logg)
	if err != nil {
		return err
	}
	if warehouse != nil {
		defer func() {
			if err := warehouse.Close(); err != nil {
				logg.Error(bootCtx, "error closing bigquery", err)
			}
		}()
		deps.Warehouse = warehouse
	}

	crmService, err := bootstrap.NewCRMService(bootCtx, cfg, logg, deps)
	if err != nil {
		return err
	}

	refreshParams := cron.SegmentRefreshJobParams{
		Logger:      logg,
		CRM:         crmService,
		OrgLimit:    cfg.CRM.RefreshOrgLimit,
		Concurrency: cfg.CRM.RefreshWorkerCap,
	}
	if warehouse != nil {
		refreshParams.Snapshots = warehouse
		refreshParams.SnapshotTable = cfg.BigQuery.SnapshotTable
	}
	refreshJob, err := cron.NewSegmentRefreshJob(refreshParams)
	if err != nil {
		return err
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron", lockScope(cfg.App.Env)), 0)
	if err != nil {
		return err
	}

	jobs := cron.NewRegistry(refreshJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.CRM.RefreshInterval,
		JobTimeout: jobTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"jobs":        jobs.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
