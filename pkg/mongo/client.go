package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
)

const (
	defaultConnectTimeout = 10 * time.Second
	pingTimeout           = 2 * time.Second
	disconnectTimeout     = 5 * time.Second
	socketTimeout         = 10 * time.Second
)

// Client wraps the document store connection used for order history.
type Client struct {
	raw *mongo.Client
	db  *mongo.Database
	cfg config.MongoConfig
}

// New connects to MongoDB and verifies the primary is reachable.
func New(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	c := &Client{raw: raw, db: raw.Database(cfg.Database), cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Disconnect(context.Background())
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", cfg.Database), "mongo connection established")
	}
	return c, nil
}

func clientOptions(cfg config.MongoConfig) (*options.ClientOptions, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("mongo database is required")
	}
	opts := options.Client().
		ApplyURI(uri).
		SetSocketTimeout(socketTimeout)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 && cfg.MinPoolSize <= cfg.MaxPoolSize {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo options: %w", err)
	}
	return opts, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Orders returns the order history collection.
func (c *Client) Orders() *mongo.Collection {
	return c.db.Collection(c.cfg.OrdersCollection)
}

// EnsureOrderIndexes creates the lookup index the CRM reads by. The collation
// matches the one used for case-insensitive email lookups.
func (c *Client) EnsureOrderIndexes(ctx context.Context) error {
	_, err := c.Orders().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orgId", Value: 1}, {Key: "customerEmail", Value: 1}},
		Options: options.Index().
			SetName("orgId_customerEmail").
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	return nil
}

// Ping checks primary reachability.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("mongo client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.raw.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return c.raw.Disconnect(ctx)
}
