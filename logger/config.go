package logger

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validFormats = []string{FormatJSON, FormatConsole, FormatPretty, "text"}
	validOutputs = []string{"stdout", "stderr"}
)

// Config contains logging configuration. Shutdown diagnostics are written
// synchronously to Output, so they are not lost when the process exits right
// after logging them.
type Config struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// ApplyDefaults fills empty fields and always enables timestamps.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate checks level, format and output. Matching is case-insensitive.
func (c *Config) Validate() error {
	if err := oneOf("logging.level", c.Level, validLevels); err != nil {
		return err
	}
	if err := oneOf("logging.format", c.Format, validFormats); err != nil {
		return err
	}
	if c.Output != "" {
		return oneOf("logging.output", c.Output, validOutputs)
	}
	return nil
}

func oneOf(key, val string, allowed []string) error {
	if !slices.Contains(allowed, strings.ToLower(val)) {
		return fmt.Errorf("%s must be one of %v (got: %s)", key, allowed, val)
	}
	return nil
}
