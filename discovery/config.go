package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Config holds service registry and health probing configuration.
type Config struct {
	// HealthCheckPath is the HTTP path probed on each endpoint (e.g. "/health").
	HealthCheckPath string `yaml:"health_check_path" mapstructure:"health_check_path"`

	// HealthCheckInterval controls how often endpoints are probed.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" mapstructure:"health_check_interval"`

	// HealthCheckTimeout is the timeout for a single probe.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout" mapstructure:"health_check_timeout"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.HealthCheckPath == "" {
		c.HealthCheckPath = "/health"
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = 5 * time.Second
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.HealthCheckPath, "/") {
		return fmt.Errorf("discovery: health_check_path must start with / (got: %s)", c.HealthCheckPath)
	}
	if c.HealthCheckTimeout > c.HealthCheckInterval {
		return fmt.Errorf("discovery: health_check_timeout must not exceed health_check_interval")
	}
	return nil
}
