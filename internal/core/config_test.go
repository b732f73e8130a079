package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardgen/pkg/schema"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "DEBUG", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"DATA_DIR", "CATALOG_DIR", "HISTORY_PATH", "FIXED_DATA_PATH",
		"MAX_ITERATIONS", "BATCH_WORKERS", "REQUEST_TIMEOUT", "REQUESTS_PER_SECOND",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, schema.DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, 180*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.RequestsPerSecond)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "1")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("MAX_ITERATIONS", "5")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("REQUEST_TIMEOUT", "30s")
	t.Setenv("REQUESTS_PER_SECOND", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// DEBUG wins over LOG_LEVEL.
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 0.001)
}

func TestAdapterConfig(t *testing.T) {
	cfg := &Config{
		APIKey:            "sk-test",
		BaseURL:           "https://gw.example/v1",
		Model:             "gpt-4o",
		RequestTimeout:    45 * time.Second,
		RequestsPerSecond: 1,
	}

	ac := cfg.AdapterConfig()
	assert.Equal(t, "sk-test", ac.APIKey)
	assert.Equal(t, "https://gw.example/v1", ac.BaseURL)
	assert.Equal(t, "gpt-4o", ac.Model)
	assert.Equal(t, 45*time.Second, ac.Timeout)
	assert.InDelta(t, 1.0, ac.RequestsPerSecond, 0.001)
}
