package config

import "time"

// Rejection policies accepted by ShutdownConfig.RejectionPolicy.
const (
	RejectionPolicyShutdown = "shutdown"
	RejectionPolicyCrash    = "crash"
)

// ShutdownConfig configures the shutdown coordinator.
type ShutdownConfig struct {
	// Timeout bounds the whole cleanup.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// FlushTimeout bounds how long the crash reporter may flush before exit.
	FlushTimeout time.Duration `yaml:"flush_timeout" mapstructure:"flush_timeout" validate:"gt=0"`
	// CrashReporterEndpoint is the OTLP collector receiving captured errors.
	// Empty disables crash reporting.
	CrashReporterEndpoint string `yaml:"crash_reporter_endpoint" mapstructure:"crash_reporter_endpoint" validate:"omitempty,endpoint"`
	// RejectionPolicy is "shutdown" or "crash".
	RejectionPolicy string `yaml:"rejection_policy" mapstructure:"rejection_policy" validate:"oneof=shutdown crash"`
}

// ApplyDefaults fills unset fields.
func (c *ShutdownConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.FlushTimeout == 0 {
		c.FlushTimeout = 2 * time.Second
	}
	if c.RejectionPolicy == "" {
		c.RejectionPolicy = RejectionPolicyShutdown
	}
}
