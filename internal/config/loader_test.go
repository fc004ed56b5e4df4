package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 5050
  mode: debug
database:
  host: db.internal
  user: flame
  password: secret
  db_name: flame
redis:
  addr: cache.internal:6379
oracle:
  transport: grpc
  grpc_target: oracle.internal:9000
  timeout: 45s
  cache: true
auth:
  session_secret: "a-session-secret-of-some-length"
  session_ttl: 48h
cors:
  allow_origins: ["https://flame.example.org"]
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5050, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "grpc", cfg.Oracle.Transport)
	assert.Equal(t, 45*time.Second, cfg.Oracle.Timeout)
	assert.True(t, cfg.Oracle.Cache)
	assert.Equal(t, 48*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "My Data", cfg.Auth.DefaultCollection)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "server: [port: 1")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "server:\n  port: 5000\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.session_secret")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("FLAMEDATA_DATABASE_HOST", "override.internal")
	t.Setenv("FLAMEDATA_SERVER_PORT", "6000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6000, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FLAMEDATA_AUTH_SESSION_SECRET", "env-provided-session-secret")
	t.Setenv("FLAMEDATA_ORACLE_BASE_URL", "http://oracle:8000")
	t.Setenv("FLAMEDATA_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-provided-session-secret", cfg.Auth.SessionSecret)
	assert.Equal(t, "http://oracle:8000", cfg.Oracle.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOptional_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("FLAMEDATA_AUTH_SESSION_SECRET", "env-provided-session-secret")
	cfg, err := LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestMustLoad_Valid(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() { _ = MustLoad(path) })
}
