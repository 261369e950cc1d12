package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults to memory store and local identity", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, BackendMemory, cfg.Store.Backend)
		assert.Equal(t, IdentityLocal, cfg.Identity.Mode)
		require.NoError(t, cfg.Validate())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MARINA_ADDR", ":9090")
		t.Setenv("STORE_BACKEND", BackendRedis)
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("REDIS_POOL_SIZE", "42")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		t.Setenv("MARINA_REQUEST_TIMEOUT", "5s")

		cfg := FromEnv()
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, BackendRedis, cfg.Store.Backend)
		assert.Equal(t, 42, cfg.Redis.PoolSize)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Audit.KafkaBrokers)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		require.NoError(t, cfg.Validate())
	})
}

func TestValidate(t *testing.T) {
	t.Run("backend requires its connection setting", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Backend = BackendPostgres
		require.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

		cfg.Store.Backend = BackendDatastore
		require.ErrorContains(t, cfg.Validate(), "DATASTORE_PROJECT_ID")
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Backend = "leveldb"
		require.Error(t, cfg.Validate())
	})

	t.Run("local identity refused in production", func(t *testing.T) {
		cfg := Default()
		cfg.Environment = "prod"
		require.ErrorContains(t, cfg.Validate(), "not allowed in production")
	})

	t.Run("google identity requires client id", func(t *testing.T) {
		cfg := Default()
		cfg.Identity.Mode = IdentityGoogle
		require.ErrorContains(t, cfg.Validate(), "GOOGLE_CLIENT_ID")
	})
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marina.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7070"
store:
  backend: postgres
  database_url: postgres://marina@localhost/marina
identity:
  mode: local
`), 0o600))

	t.Setenv("MARINA_ADDR", ":6060")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Addr, "env wins over file")
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://marina@localhost/marina", cfg.Store.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout, "defaults survive partial files")
}
