package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.BackendMemory, cfg.Limiter.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  port: 9000
  host: "localhost"
  read_timeout: 10s

limiter:
  backend: "sqlite"
  sweep_interval: 1m
  store_timeout: 250ms
  database:
    dsn: "./counters.db"

logging:
  level: "debug"
  format: "text"
  output: "stderr"

metrics:
  enabled: false
`

	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, models.BackendSQLite, cfg.Limiter.Backend)
	assert.Equal(t, time.Minute, cfg.Limiter.SweepInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Limiter.StoreTimeout)
	assert.Equal(t, "./counters.db", cfg.Limiter.Database.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [not: valid"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_PORT", "9999")
	t.Setenv("GATEKEEPER_HOST", "127.0.0.1")
	t.Setenv("GATEKEEPER_LOG_LEVEL", "warn")
	t.Setenv("GATEKEEPER_STORE_TIMEOUT", "100ms")
	t.Setenv("GATEKEEPER_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 100*time.Millisecond, cfg.Limiter.StoreTimeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_RedisAddrSelectsRedisBackend(t *testing.T) {
	t.Setenv("GATEKEEPER_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.BackendRedis, cfg.Limiter.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Limiter.Redis.Addr)
}

func TestLoad_ExplicitBackendWinsOverRedisAddr(t *testing.T) {
	t.Setenv("GATEKEEPER_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("GATEKEEPER_STORE_BACKEND", models.BackendSQLite)
	t.Setenv("GATEKEEPER_DATABASE_DSN", "./counters.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.BackendSQLite, cfg.Limiter.Backend)
}

func TestLoad_NoRedisAddrSelectsMemory(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.BackendMemory, cfg.Limiter.Backend)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	t.Setenv("GATEKEEPER_STORE_BACKEND", "etcd")

	_, err := Load("")
	assert.Error(t, err)
}
