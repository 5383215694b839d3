package config

// EnvPrefix is passed to envconfig. Every field carries its full variable name, so
// the prefixed lookup misses and envconfig falls back to the tag itself.
const EnvPrefix = "DCRM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DCRM_APP_ENV"
	EnvPort     = "DCRM_APP_PORT"
	EnvLogLevel = "DCRM_LOG_LEVEL"

	EnvDBDSN  = "DCRM_DB_DSN"
	EnvDBHost = "DCRM_DB_HOST"
	EnvDBUser = "DCRM_DB_USER"
	EnvDBName = "DCRM_DB_NAME"

	EnvRedisURL = "DCRM_REDIS_URL"

	EnvJWTSecret  = "DCRM_JWT_SECRET"
	EnvJWTIssuer  = "DCRM_JWT_ISSUER"
	EnvJWTExpMins = "DCRM_JWT_EXPIRATION_MINUTES"

	EnvMongoURI       = "DCRM_MONGO_URI"
	EnvCRMOrderSource = "DCRM_CRM_ORDER_SOURCE"
	EnvCRMRulesFile   = "DCRM_CRM_RULES_FILE"
	EnvCRMStatsTTL    = "DCRM_CRM_STATS_CACHE_TTL"
	EnvGCPProjectID   = "DCRM_GCP_PROJECT_ID"
	EnvEventsSink     = "DCRM_EVENTS_SINK"
	EnvKafkaBrokers   = "DCRM_KAFKA_BROKERS"
	EnvPubSubTopic    = "DCRM_PUBSUB_CUSTOMER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
