package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"GEOSIG_WORKERS", "GEOSIG_DEFAULT_LEVEL", "GEOSIG_MAX_LEVEL", "GEOSIG_MAX_CELLS",
		"GEOSIG_TILE_SIZE", "ADDR", "API_BASE", "SIGNATURE_CACHE_SIZE", "SIGNATURE_CACHE_TTL_S",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_QPS", "GEOIP_DB_PATH", "PG_ENABLED", "REDIS_ENABLED"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, runtime.GOMAXPROCS(0), c.Workers)
	assert.Equal(t, 10, c.DefaultLevel)
	assert.Equal(t, 12, c.MaxLevel)
	assert.Equal(t, 5_000_000, c.MaxCells)
	assert.Equal(t, 0.05, c.TileSize)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, time.Hour, c.CacheTTL)
	assert.False(t, c.RateLimitEnabled)
	assert.False(t, c.PGEnabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GEOSIG_WORKERS", "3")
	t.Setenv("GEOSIG_MAX_LEVEL", "9")
	t.Setenv("GEOSIG_DEFAULT_LEVEL", "11")
	t.Setenv("GEOSIG_TILE_SIZE", "0.25")
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("SIGNATURE_CACHE_TTL_S", "60")
	c := FromEnv()
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, 9, c.MaxLevel)
	assert.Equal(t, 9, c.DefaultLevel)
	assert.Equal(t, 0.25, c.TileSize)
	assert.Equal(t, "/v1", c.APIBase)
	assert.True(t, c.RateLimitEnabled)
	assert.Equal(t, time.Minute, c.CacheTTL)
}

func TestFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("GEOSIG_WORKERS", "-2")
	t.Setenv("GEOSIG_MAX_LEVEL", "40")
	t.Setenv("GEOSIG_TILE_SIZE", "abc")
	c := FromEnv()
	assert.Equal(t, runtime.GOMAXPROCS(0), c.Workers)
	assert.Equal(t, 12, c.MaxLevel)
	assert.Equal(t, 0.05, c.TileSize)
}
