package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/flame-data/internal/config"
)

// validConfig returns a Config that passes Validate() with all required fields set.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Auth.SessionSecret = "0123456789abcdef0123"
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 65536 }, "server.port"},
		{"bad mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"no db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"no db user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"no db name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"no redis", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"bad transport", func(c *config.Config) { c.Oracle.Transport = "carrier-pigeon" }, "oracle.transport"},
		{"grpc without target", func(c *config.Config) { c.Oracle.Transport = "grpc" }, "oracle.grpc_target"},
		{"short secret", func(c *config.Config) { c.Auth.SessionSecret = "short" }, "auth.session_secret"},
		{"no default collection", func(c *config.Config) { c.Auth.DefaultCollection = "" }, "auth.default_collection"},
		{"kafka without brokers", func(c *config.Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
		{"storage without bucket", func(c *config.Config) {
			c.Storage.Enabled = true
			c.Storage.Bucket = ""
		}, "storage.bucket"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "My Data", cfg.Auth.DefaultCollection)
	assert.Equal(t, config.DefaultSessionTTL, cfg.Auth.SessionTTL)
	assert.Equal(t, "http", cfg.Oracle.Transport)
	assert.Equal(t, config.DefaultOracleBaseURL, cfg.Oracle.BaseURL)
	assert.Equal(t, config.DefaultOracleCacheTTL, cfg.Oracle.CacheTTL)
	assert.Equal(t, []string{config.DefaultCORSOrigin}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Server.Port = 8081
	cfg.Oracle.Transport = "grpc"
	config.ApplyDefaults(cfg)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "grpc", cfg.Oracle.Transport)
	assert.Empty(t, cfg.Oracle.BaseURL)
}

func TestApplyDefaults_Nil(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}
