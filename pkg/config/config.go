package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Mongo        MongoConfig
	CRM          CRMConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Kafka        KafkaConfig
	Events       EventsConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.CRM.validate(cfg.Mongo); err != nil {
		return nil, err
	}
	if err := cfg.Events.validate(cfg.Kafka); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DCRM_APP_ENV" required:"true"`
	Port         string `envconfig:"DCRM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DCRM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DCRM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DCRM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DCRM_DB_DSN"`
	Driver string `envconfig:"DCRM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DCRM_DB_HOST"`
	LegacyPort     int    `envconfig:"DCRM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DCRM_DB_USER"`
	LegacyPassword string `envconfig:"DCRM_DB_PASSWORD"`
	LegacyName     string `envconfig:"DCRM_DB_NAME"`
	LegacySSLMode  string `envconfig:"DCRM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DCRM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DCRM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DCRM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DCRM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DCRM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DCRM_REDIS_ADDR"`
	Password     string        `envconfig:"DCRM_REDIS_PASSWORD"`
	DB           int           `envconfig:"DCRM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DCRM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DCRM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DCRM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DCRM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DCRM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DCRM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DCRM_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DCRM_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DCRM_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DCRM_AUTO_MIGRATE" default:"false"`
}

type MongoConfig struct {
	URI              string        `envconfig:"DCRM_MONGO_URI"`
	Database         string        `envconfig:"DCRM_MONGO_DATABASE" default:"dispensary"`
	OrdersCollection string        `envconfig:"DCRM_MONGO_ORDERS_COLLECTION" default:"orders"`
	MaxPoolSize      uint64        `envconfig:"DCRM_MONGO_MAX_POOL_SIZE" default:"50"`
	MinPoolSize      uint64        `envconfig:"DCRM_MONGO_MIN_POOL_SIZE" default:"5"`
	ConnectTimeout   time.Duration `envconfig:"DCRM_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// Enabled reports whether a document store was configured.
func (m MongoConfig) Enabled() bool {
	return strings.TrimSpace(m.URI) != ""
}

const (
	OrderSourcePostgres = "postgres"
	OrderSourceMongo    = "mongo"
)

type CRMConfig struct {
	OrderSource      string        `envconfig:"DCRM_CRM_ORDER_SOURCE" default:"postgres"`
	RulesFile        string        `envconfig:"DCRM_CRM_RULES_FILE"`
	StatsCacheTTL    time.Duration `envconfig:"DCRM_CRM_STATS_CACHE_TTL" default:"15m"`
	RefreshInterval  time.Duration `envconfig:"DCRM_CRM_REFRESH_INTERVAL" default:"1h"`
	SpendingEnrich   bool          `envconfig:"DCRM_CRM_SPENDING_ENRICHMENT" default:"false"`
	RefreshOrgLimit  int           `envconfig:"DCRM_CRM_REFRESH_ORG_LIMIT" default:"500"`
	RefreshWorkerCap int           `envconfig:"DCRM_CRM_REFRESH_CONCURRENCY" default:"4"`
}

func (c *CRMConfig) validate(mongo MongoConfig) error {
	c.OrderSource = strings.ToLower(strings.TrimSpace(c.OrderSource))
	switch c.OrderSource {
	case OrderSourcePostgres:
	case OrderSourceMongo:
		if !mongo.Enabled() {
			return fmt.Errorf("%s=%s requires %s", EnvCRMOrderSource, OrderSourceMongo, EnvMongoURI)
		}
	default:
		return fmt.Errorf("invalid %s %q", EnvCRMOrderSource, c.OrderSource)
	}
	if c.RefreshWorkerCap <= 0 {
		c.RefreshWorkerCap = 1
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DCRM_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DCRM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DCRM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CustomerTopic        string `envconfig:"DCRM_PUBSUB_CUSTOMER_TOPIC" default:"crm-customer-events"`
	CustomerSubscription string `envconfig:"DCRM_PUBSUB_CUSTOMER_SUBSCRIPTION" default:"crm-customer-events-warehouse"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"DCRM_BIGQUERY_DATASET" default:"dispensary_crm"`
	SpendingTable       string `envconfig:"DCRM_BIGQUERY_SPENDING_TABLE" default:"customer_spending"`
	SnapshotTable       string `envconfig:"DCRM_BIGQUERY_SNAPSHOT_TABLE" default:"segment_snapshots"`
	CustomerEventsTable string `envconfig:"DCRM_BIGQUERY_CUSTOMER_EVENTS_TABLE" default:"customer_events"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"DCRM_KAFKA_BROKERS"`
	Topic        string        `envconfig:"DCRM_KAFKA_TOPIC" default:"crm.customer-events"`
	BatchTimeout time.Duration `envconfig:"DCRM_KAFKA_BATCH_TIMEOUT" default:"50ms"`
}

const (
	EventsSinkPubSub = "pubsub"
	EventsSinkKafka  = "kafka"
)

type EventsConfig struct {
	Sink string `envconfig:"DCRM_EVENTS_SINK" default:"pubsub"`
}

func (e *EventsConfig) validate(kafka KafkaConfig) error {
	e.Sink = strings.ToLower(strings.TrimSpace(e.Sink))
	switch e.Sink {
	case EventsSinkPubSub:
		return nil
	case EventsSinkKafka:
		if len(kafka.Brokers) == 0 {
			return fmt.Errorf("%s=%s requires %s", EnvEventsSink, EventsSinkKafka, EnvKafkaBrokers)
		}
		return nil
	default:
		return fmt.Errorf("invalid %s %q", EnvEventsSink, e.Sink)
	}
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DCRM_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DCRM_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DCRM_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DCRM_OUTBOX_RETENTION_DAYS" default:"30"`
}

// RateLimitConfig throttles the customer computation endpoints.
type RateLimitConfig struct {
	ComputeWindow   time.Duration `envconfig:"DCRM_RATE_LIMIT_COMPUTE_WINDOW" default:"1m"`
	ComputeIPLimit  int           `envconfig:"DCRM_RATE_LIMIT_COMPUTE_IP" default:"120"`
	ComputeOrgLimit int           `envconfig:"DCRM_RATE_LIMIT_COMPUTE_ORG" default:"60"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
