package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	assert.Equal(t, "tushare", cfg.TokenKind)
	assert.Equal(t, "https://api.tushare.pro", cfg.BaseURL)
	assert.Equal(t, "5432", cfg.DatabasePort)
	assert.Equal(t, "6379", cfg.RedisPort)

	assert.Equal(t, 200*time.Millisecond, cfg.Sync.CallInterval)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}, cfg.Sync.RetryDelays)
	assert.Equal(t, 50, cfg.Sync.ChunkSize)
	assert.InDelta(t, 0.20, cfg.Sync.MissingRateThreshold, 1e-9)
	assert.InDelta(t, 0.10, cfg.Sync.AnomalousRateThreshold, 1e-9)
	assert.InDelta(t, 0.80, cfg.Sync.BatchSuccessRate, 1e-9)
	assert.Equal(t, time.Hour, cfg.Sync.UniverseCacheTTL)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER_TOKEN", "secret")
	t.Setenv("PROVIDER_TOKEN_KIND", "tudata")
	t.Setenv("SYNC_CHUNK_SIZE", "25")
	t.Setenv("SYNC_MISSING_RATE_THRESHOLD", "0.5")
	t.Setenv("SYNC_CALL_INTERVAL_MS", "50")

	cfg := LoadFromEnv()
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "tudata", cfg.TokenKind)
	assert.Equal(t, 25, cfg.Sync.ChunkSize)
	assert.InDelta(t, 0.5, cfg.Sync.MissingRateThreshold, 1e-9)
	assert.Equal(t, 50*time.Millisecond, cfg.Sync.CallInterval)
}

func TestEnvParsingFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SYNC_CHUNK_SIZE", "not-a-number")
	t.Setenv("SYNC_BATCH_SUCCESS_RATE", "also-garbage")

	cfg := LoadFromEnv()
	assert.Equal(t, 50, cfg.Sync.ChunkSize)
	assert.InDelta(t, 0.80, cfg.Sync.BatchSuccessRate, 1e-9)
}
