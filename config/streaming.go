package config

import (
	"strings"
	"time"
)

// DefaultTestResultChannel is the well-known push channel carrying test
// result notifications. Preserved as configuration, not hardcoded logic.
const DefaultTestResultChannel = "/systemTopic/TestResult"

// StreamingConfig contains push-channel transport configuration.
type StreamingConfig struct {
	// Channel is the push channel name subscribed for test results.
	Channel string `env:"CHANNEL" envDefault:"/systemTopic/TestResult"`
	// Timeout is the idle ceiling bounding how long a subscription may stay
	// open without resolving. A safety net against orphaned connections.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"2h"`
	// RequestTimeout bounds each long-poll request.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"110s"`
}

// Sanitize applies guardrails to streaming configuration values.
func (c *StreamingConfig) Sanitize() {
	c.Channel = strings.TrimSpace(c.Channel)
	if c.Channel == "" {
		c.Channel = DefaultTestResultChannel
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Hour
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 110 * time.Second
	}
}
