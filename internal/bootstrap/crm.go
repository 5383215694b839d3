// Package bootstrap builds the CRM service graph shared by the API and the
// cron worker.
package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/dispensary-crm/internal/crm"
	"github.com/angelmondragon/dispensary-crm/pkg/bigquery"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/db"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/metrics"
	"github.com/angelmondragon/dispensary-crm/pkg/mongo"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
	"github.com/angelmondragon/dispensary-crm/pkg/redis"
	"github.com/angelmondragon/dispensary-crm/pkg/storage/gcs"
)

// CRMDeps are the clients the CRM service draws on. Mongo and Warehouse are
// optional and only used when the config asks for them.
type CRMDeps struct {
	DB        *db.Client
	Redis     *redis.Client
	Mongo     *mongo.Client
	Warehouse *bigquery.Client
	Metrics   *metrics.CRMMetrics
}

// NewCRMService assembles the CRM service from config.
func NewCRMService(ctx context.Context, cfg *config.Config, logg *logger.Logger, deps CRMDeps) (crm.Service, error) {
	if deps.DB == nil {
		return nil, errors.New("database client is required")
	}

	classifier, err := LoadClassifier(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("load segment rules: %w", err)
	}

	var orders crm.OrderSource
	switch cfg.CRM.OrderSource {
	case config.OrderSourceMongo:
		if deps.Mongo == nil {
			return nil, errors.New("mongo order source selected but no mongo client")
		}
		orders = crm.NewMongoOrderSource(deps.Mongo.Orders())
	default:
		orders = crm.NewOrderRepository(deps.DB.DB())
	}

	params := crm.ServiceParams{
		Repo:            crm.NewRepository(deps.DB.DB()),
		Orders:          orders,
		Outbox:          outbox.NewService(outbox.NewRepository(deps.DB.DB()), logg),
		Tx:              deps.DB,
		Classifier:      classifier,
		Metrics:         deps.Metrics,
		Logger:          logg,
		EnrichOnRefresh: cfg.CRM.SpendingEnrich,
	}
	if deps.Redis != nil {
		params.Cache = crm.NewRedisStatsCache(deps.Redis, cfg.CRM.StatsCacheTTL)
	}
	if deps.Warehouse != nil {
		params.Spending = crm.NewBigQuerySpendingSource(deps.Warehouse, cfg.BigQuery.SpendingTable)
	}
	return crm.NewService(params)
}

// OpenMongo connects the document store when one is configured and ensures
// the order indexes. It returns nil when Mongo is not configured.
func OpenMongo(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*mongo.Client, error) {
	if !cfg.Mongo.Enabled() {
		return nil, nil
	}
	client, err := mongo.New(ctx, cfg.Mongo, logg)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureOrderIndexes(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ensure order indexes: %w", err)
	}
	return client, nil
}

// OpenWarehouse connects BigQuery when a GCP project is configured. It
// returns nil otherwise.
func OpenWarehouse(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*bigquery.Client, error) {
	if cfg.GCP.ProjectID == "" {
		return nil, nil
	}
	return bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
}

// LoadClassifier reads the segment rules from a local path or a gs:// object.
func LoadClassifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*crm.Classifier, error) {
	if !gcs.IsObjectURI(cfg.CRM.RulesFile) {
		return crm.LoadClassifier(cfg.CRM.RulesFile)
	}
	client, err := gcs.NewClient(cfg.GCP, logg)
	if err != nil {
		return nil, err
	}
	raw, err := client.ReadURI(ctx, cfg.CRM.RulesFile)
	if err != nil {
		return nil, err
	}
	rules, err := crm.ParseRules(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.CRM.RulesFile, err)
	}
	logg.Info(logg.WithField(ctx, "rules_uri", cfg.CRM.RulesFile), "segment rules loaded from gcs")
	return crm.NewClassifier(rules)
}
