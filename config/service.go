package config

import (
	"fmt"

	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/validation"
)

// ServiceConfig contains the fields every process needs. Projects extend it
// by embedding it in their own config structs:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Probe probe.Config   `yaml:"probe" mapstructure:"probe"`
//	}
type ServiceConfig struct {
	Name        string         `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string         `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string         `yaml:"version" mapstructure:"version"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Shutdown    ShutdownConfig `yaml:"shutdown" mapstructure:"shutdown"`
}

// GetServiceConfig returns the base ServiceConfig. When embedded, it is
// promoted so the embedding struct satisfies bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
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
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Shutdown.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
