package config

import (
	"testing"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":6363", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis", cfg.Backend.Kind)
	assert.Equal(t, int64(10000), cfg.Adapter.ScanCount)
	assert.True(t, cfg.Adapter.HashSlot)
	assert.False(t, cfg.Backend.RedisCluster)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSAllowedOrigins)

	assert.Equal(t, kv.Config{
		Backend:         kv.BackendRedis,
		RedisURL:        "127.0.0.1:6379",
		JanitorInterval: 30 * time.Second,
	}, cfg.KV())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_ENV", "prod")
	t.Setenv("CACHE_REDIS_URL", "redis://:secret@redis:6380/2")
	t.Setenv("CACHE_REDIS_CLUSTER", "true")
	t.Setenv("CACHE_SCAN_COUNT", "500")
	t.Setenv("CACHE_HASH_SLOT", "false")
	t.Setenv("CACHE_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, int64(500), cfg.Adapter.ScanCount)
	assert.False(t, cfg.Adapter.HashSlot)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)

	kvCfg := cfg.KV()
	assert.Equal(t, "redis://:secret@redis:6380/2", kvCfg.RedisURL)
	assert.True(t, kvCfg.RedisCluster)
}

func TestLoadHostAndPort(t *testing.T) {
	t.Setenv("CACHE_REDIS_HOST", "cache.internal")
	t.Setenv("CACHE_REDIS_PORT", "7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:7000", cfg.Backend.RedisAddress())
}

func TestLoadMemoryBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "Memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, kv.BackendMemory, cfg.KV().Backend)
	assert.Empty(t, cfg.KV().RedisURL)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"unknown backend", "CACHE_BACKEND", "etcd", "invalid CACHE_BACKEND"},
		{"zero scan count", "CACHE_SCAN_COUNT", "0", "CACHE_SCAN_COUNT must be positive"},
		{"bad port", "CACHE_REDIS_PORT", "70000", "invalid CACHE_REDIS_PORT"},
		{"negative rate limit", "CACHE_RATE_LIMIT_RPM", "-1", "CACHE_RATE_LIMIT_RPM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
