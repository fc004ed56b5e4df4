package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort        = 5000
	DefaultServerMode        = "release"
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultMaxBodySize int64 = 4 << 20
	DefaultSlowRequest       = 2 * time.Second

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "postgres"
	DefaultDBName     = "flame_data"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 25
	DefaultDBMaxIdle  = 5

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "flamedata:"

	DefaultOracleTransport  = "http"
	DefaultOracleBaseURL    = "http://localhost:8000"
	DefaultOracleTimeout    = 120 * time.Second
	DefaultOracleMaxRetries = 2
	DefaultOracleRetryWait  = 500 * time.Millisecond
	DefaultOracleCacheTTL   = 24 * time.Hour

	DefaultSessionTTL        = 7 * 24 * time.Hour
	DefaultCookieName        = "flame_session"
	DefaultBcryptCost        = 12
	DefaultCollectionName    = "My Data"
	DefaultCORSOrigin        = "http://localhost:3000"
	DefaultCORSMaxAge        = 12 * time.Hour
	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaClientID     = "flame-data-api"
	DefaultKafkaBatchTimeout = 10 * time.Millisecond

	DefaultStorageEndpoint = "localhost:9000"
	DefaultStorageBucket   = "flame-data-exports"
	DefaultPresignExpiry   = time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "flamedata"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields that have already been set by the caller are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.SlowRequest == 0 {
		cfg.Server.SlowRequest = DefaultSlowRequest
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdle
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	if cfg.Oracle.Transport == "" {
		cfg.Oracle.Transport = DefaultOracleTransport
	}
	if cfg.Oracle.Transport == "http" && cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = DefaultOracleBaseURL
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = DefaultOracleTimeout
	}
	if cfg.Oracle.MaxRetries == 0 {
		cfg.Oracle.MaxRetries = DefaultOracleMaxRetries
	}
	if cfg.Oracle.RetryWait == 0 {
		cfg.Oracle.RetryWait = DefaultOracleRetryWait
	}
	if cfg.Oracle.CacheTTL == 0 {
		cfg.Oracle.CacheTTL = DefaultOracleCacheTTL
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = DefaultSessionTTL
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = DefaultCookieName
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = DefaultBcryptCost
	}
	if cfg.Auth.DefaultCollection == "" {
		cfg.Auth.DefaultCollection = DefaultCollectionName
	}

	// ── CORS ──────────────────────────────────────────────────────────────────
	if len(cfg.CORS.AllowOrigins) == 0 {
		cfg.CORS.AllowOrigins = []string{DefaultCORSOrigin}
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = DefaultCORSMaxAge
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = DefaultStorageEndpoint
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = DefaultStorageBucket
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = DefaultPresignExpiry
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// registerKeys declares every leaf key with viper so that AutomaticEnv can
// resolve FLAMEDATA_* variables during Unmarshal even without a config file.
// Values registered here are zero values; ApplyDefaults supplies the real ones.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
		"server.max_body_size", "server.shutdown_timeout", "server.slow_request",

		"database.host", "database.port", "database.user", "database.password",
		"database.db_name", "database.ssl_mode", "database.max_conns",
		"database.max_idle_conns", "database.conn_max_lifetime",
		"database.conn_max_idle_time", "database.statement_timeout", "database.auto_migrate",

		"redis.addr", "redis.password", "redis.db", "redis.pool_size",
		"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
		"redis.write_timeout", "redis.key_prefix",

		"oracle.transport", "oracle.base_url", "oracle.grpc_target", "oracle.timeout",
		"oracle.max_retries", "oracle.retry_wait", "oracle.cache_ttl", "oracle.cache",

		"auth.session_secret", "auth.session_ttl", "auth.cookie_name",
		"auth.cookie_secure", "auth.cookie_domain", "auth.bcrypt_cost",
		"auth.default_collection",

		"cors.allow_origins", "cors.max_age",

		"kafka.enabled", "kafka.brokers", "kafka.client_id", "kafka.producer_retries",
		"kafka.batch_size", "kafka.batch_timeout", "kafka.async",

		"storage.enabled", "storage.endpoint", "storage.access_key", "storage.secret_key",
		"storage.bucket", "storage.region", "storage.use_ssl", "storage.presign_expiry",

		"log.level", "log.format", "log.output",

		"metrics.enabled", "metrics.namespace", "metrics.path",
	} {
		v.SetDefault(key, nil)
	}
}
