package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":3000", cfg.HTTP.Address)
	assert.Equal(t, 100, cfg.HTTP.RateLimit)
	assert.Equal(t, time.Minute, cfg.HTTP.RateWindow)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "tasks.db", cfg.DB.TasksDSN)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTTL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
log_level: DEBUG
http:
  address: ":8081"
db:
  driver: sqlite
  tasks_dsn: "file.db"
redis:
  addr: "localhost:6379"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("HTTP_ADDRESS", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "file.db", cfg.DB.TasksDSN)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load("")
	assert.ErrorContains(t, err, "unsupported db driver")
}
