package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "civic-report-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "data/boundary.geojson", cfg.Geo.BoundaryPath)
	assert.Equal(t, time.Hour, cfg.Routing.CategoryCacheTTL())
	assert.True(t, cfg.Postgres.RunMigrations)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ROUTING_CATEGORY_CACHE_TTL_SECONDS", "60")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, time.Minute, cfg.Routing.CategoryCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
