package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/db"
	"github.com/angelmondragon/dispensary-crm/pkg/instance"
	"github.com/angelmondragon/dispensary-crm/pkg/kafka"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/migrate"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox/idempotency"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox/registry"
	"github.com/angelmondragon/dispensary-crm/pkg/pubsub"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
)

const deliveryGuardTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
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
	guard, err := idempotency.NewManager(redisClient, deliveryGuardTTL)
	if err != nil {
		return err
	}

	eventSink, topic, closeSink, err := buildSink(bootCtx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeSink()

	eventRegistry, err := registry.NewEventRegistry(topic)
	if err != nil {
		return err
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Sink:       eventSink,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Guard:      guard,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"instance":    instance.ID(),
		"sink":        eventSink.Name(),
		"topic":       topic,
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}

// buildSink returns the configured broker, the topic CRM events are routed to
// and a cleanup func.
func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (sink, string, func(), error) {
	switch cfg.Events.Sink {
	case config.EventsSinkKafka:
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		if err != nil {
			return nil, "", nil, err
		}
		s, err := newKafkaSink(producer)
		if err != nil {
			return nil, "", nil, err
		}
		return s, cfg.Kafka.Topic, func() {
			if err := producer.Close(); err != nil {
				logg.Error(ctx, "error closing kafka producer", err)
			}
		}, nil
	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, "", nil, err
		}
		s, err := newPubSubSink(client, nil)
		if err != nil {
			return nil, "", nil, err
		}
		return s, cfg.PubSub.CustomerTopic, func() {
			if err := client.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}, nil
	}
}
