package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - connection.go: Salesforce org connection configuration
//   - streaming.go: Streaming transport configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (Redis stand-in transport
	// instead of the org streaming endpoint). Set DEV=true for development
	// mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Connection holds the Salesforce org connection descriptor.
	Connection ConnectionConfig `envPrefix:"SF_"`

	// Streaming holds the push-channel transport configuration.
	Streaming StreamingConfig `envPrefix:"STREAMING_"`

	// Redis backs the dev-mode push transport.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration
	Observability ObservabilityConfig

	// TestClassIDs lists the Apex test class ids the CLI enqueues.
	TestClassIDs []string `env:"TEST_CLASS_IDS"`

	// DevRunID is the run id the dev-mode start action resolves with; the
	// run itself is driven by externally seeded Redis events.
	DevRunID string `env:"DEV_RUN_ID"`

	// ResultFilter is an optional JMESPath expression applied to the final
	// queue-item JSON before the CLI prints it.
	ResultFilter string `env:"RESULT_FILTER"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Connection.Sanitize()
	c.Streaming.Sanitize()
	c.Observability.Sanitize()

	c.ResultFilter = strings.TrimSpace(c.ResultFilter)

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// NODE_ENV is checked as a fallback (common in surrounding tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// RedisConfig contains Redis configuration for the dev-mode transport.
type RedisConfig struct {
	Addr          string `env:"ADDR"           envDefault:"localhost:6379"`
	Password      string `env:"PASSWORD"       envDefault:""`
	DB            int    `env:"DB"             envDefault:"0"`
	ChannelPrefix string `env:"CHANNEL_PREFIX" envDefault:"devpush:"`
}
