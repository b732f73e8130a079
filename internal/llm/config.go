package llm

import (
	"fmt"
	"time"
)

// Config contains configuration for the model adapter.
type Config struct {
	// APIKey authenticates against the model API
	APIKey string

	// BaseURL overrides the API base URL for OpenAI-compatible gateways.
	// Empty means the provider default.
	BaseURL string

	// Model is the model used when a request does not name one.
	// Example: gpt-4o
	Model string

	// Timeout is the per-request timeout
	// Default: 60 seconds
	Timeout time.Duration

	// RequestsPerSecond caps the outgoing request rate.
	// Zero disables pacing.
	RequestsPerSecond float64

	// MaxAttempts is the number of tries for transient failures
	// Default: 3
	MaxAttempts int
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}

	if c.Model == "" {
		return fmt.Errorf("Model is required")
	}

	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
}
