package config

import (
	"fmt"
	"time"

	"github.com/navislabs/navis/discovery"
	"github.com/navislabs/navis/httpclient"
	"github.com/navislabs/navis/logger"
	"github.com/navislabs/navis/resilience"
)

// ServiceConfig contains the configuration every Navis-using service needs.
// Projects extend this by embedding it in their own config structs:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Database database.Config `yaml:"database" mapstructure:"database"`
//	}
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`
	Discovery discovery.Config `yaml:"discovery" mapstructure:"discovery"`

	// Services maps logical service names to their endpoint URLs, fed into
	// a discovery.Registry at startup.
	Services map[string][]string `yaml:"services" mapstructure:"services"`

	// Clients holds per-target client configurations keyed by a name of the
	// caller's choosing.
	Clients map[string]ClientConfig `yaml:"clients" mapstructure:"clients"`
}

// ClientConfig is the serializable shape of a service client configuration.
// Resilience knobs are flat scalars here; Resolve turns them into the
// runtime httpclient.Config.
type ClientConfig struct {
	BaseURL string            `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter     float64       `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`

	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gte=0"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// Resolve builds the runtime client configuration. name becomes the circuit
// breaker name.
func (c ClientConfig) Resolve(name string) httpclient.Config {
	retry := httpclient.DefaultRetryConfig()
	if c.MaxRetries > 0 {
		retry.MaxRetries = c.MaxRetries
	}
	if c.BaseDelay > 0 {
		retry.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		retry.MaxDelay = c.MaxDelay
	}
	if c.Jitter > 0 {
		retry.Jitter = c.Jitter
	}

	cb := resilience.DefaultCircuitBreakerConfig(name)
	if c.FailureThreshold > 0 {
		cb.FailureThreshold = c.FailureThreshold
	}
	if c.ResetTimeout > 0 {
		cb.ResetTimeout = c.ResetTimeout
	}

	return httpclient.Config{
		BaseURL:        c.BaseURL,
		Timeout:        c.Timeout,
		Headers:        c.Headers,
		Retry:          retry,
		CircuitBreaker: &cb,
	}
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Discovery.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("config.discovery: %w", err)
	}
	return nil
}

// BuildRegistry creates a registry from the Discovery section and registers
// every entry of Services.
func (c *ServiceConfig) BuildRegistry(log *logger.Logger) *discovery.Registry {
	reg := discovery.NewRegistry(c.Discovery, log)
	for name, endpoints := range c.Services {
		reg.Register(name, endpoints)
	}
	return reg
}
