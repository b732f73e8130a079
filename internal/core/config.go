package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cardgen/internal/llm"
	"cardgen/pkg/schema"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string // debug, info, warn, error

	APIKey  string // Required for model operations
	BaseURL string // Optional OpenAI-compatible gateway
	Model   string // Chat model for generation and review

	DataDir       string // Dictionaries, limits, colors, category configs
	CatalogDir    string // File catalog of cards and attribute schemas
	HistoryPath   string // JSON-lines file of finished runs
	FixedDataPath string // Optional xlsx of merchant-fixed values

	MaxIterations     int           // Refinement cycles per batch
	Workers           int           // Concurrent cards per batch
	RequestTimeout    time.Duration // Per model request
	RequestsPerSecond float64       // Model request pacing, 0 = off
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	cfg := &Config{
		LogLevel: logLevel,

		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),

		DataDir:       getEnvOrDefault("DATA_DIR", "data"),
		CatalogDir:    getEnvOrDefault("CATALOG_DIR", filepath.Join("data", "catalog")),
		HistoryPath:   getEnvOrDefault("HISTORY_PATH", filepath.Join("data", "history", "runs.jsonl")),
		FixedDataPath: os.Getenv("FIXED_DATA_PATH"),

		MaxIterations:     getEnvInt("MAX_ITERATIONS", schema.DefaultMaxIterations),
		Workers:           getEnvInt("BATCH_WORKERS", DefaultWorkers),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 180*time.Second),
		RequestsPerSecond: getEnvFloat("REQUESTS_PER_SECOND", 0),
	}

	// The API key is not required up front; offline scoring and audits
	// work without it, and the adapter validates it when built.

	return cfg, nil
}

// AdapterConfig translates the application config into the model
// adapter's config.
func (c *Config) AdapterConfig() *llm.Config {
	return &llm.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Model:             c.Model,
		Timeout:           c.RequestTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
