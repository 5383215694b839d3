package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dispensary-crm/api/controllers"
	"github.com/angelmondragon/dispensary-crm/api/routes"
	"github.com/angelmondragon/dispensary-crm/internal/bootstrap"
	"github.com/angelmondragon/dispensary-crm/internal/inbox"
	"github.com/angelmondragon/dispensary-crm/pkg/auth/session"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/db"
	"github.com/angelmondragon/dispensary-crm/pkg/instance"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/metrics"
	"github.com/angelmondragon/dispensary-crm/pkg/migrate"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		return err
	}

	ready := []controllers.Dependency{
		{Name: "database", Pinger: dbClient},
		{Name: "redis", Pinger: redisClient},
	}

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
		ready = append(ready, controllers.Dependency{Name: "mongo", Pinger: mongoClient})
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
		ready = append(ready, controllers.Dependency{Name: "bigquery", Pinger: warehouse})
	}

	crmService, err := bootstrap.NewCRMService(bootCtx, cfg, logg, deps)
	if err != nil {
		return err
	}

	inboxService, err := inbox.NewService(inbox.ServiceParams{
		Store:  inbox.NewRedisStore(redisClient),
		Logger: logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			Sessions: sessionManager,
			Redis:    redisClient,
			CRM:      crmService,
			Inbox:    inboxService,
			Gatherer: prometheus.DefaultGatherer,
			Ready:    ready,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
