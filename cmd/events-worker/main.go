package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dispensary-crm/internal/events"
	"github.com/angelmondragon/dispensary-crm/pkg/bigquery"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/instance"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox/idempotency"
	"github.com/angelmondragon/dispensary-crm/pkg/pubsub"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
)

const processedTTL = 72 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "events-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "events-worker"

	logg = logger.New(logger.Options{
		ServiceName: "events-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.CustomerSubscriber()
	if subscription == nil {
		requireResource(ctx, logg, "customer subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewManager(redisClient, processedTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	writer, err := events.NewBigQueryWriter(bqClient, cfg.BigQuery.CustomerEventsTable, events.RetryPolicy{})
	requireResource(ctx, logg, "events bigquery writer", err)

	router, err := events.NewRouter(writer, logg)
	requireResource(ctx, logg, "events router", err)

	consumer, err := events.NewConsumer(subscription, router, guard, logg)
	requireResource(ctx, logg, "events consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.CustomerSubscription,
		"instance":     instance.ID(),
	})
	logg.Info(runCtx, "events worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "events worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "events worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
