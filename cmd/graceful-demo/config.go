package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/graceful/config"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/probe"
	"github.com/kbukum/graceful/validation"
)

const serviceName = "graceful-demo"

type demoConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Probe                probe.Config  `yaml:"probe" mapstructure:"probe"`
	Metrics              metricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

type metricsConfig struct {
	// Endpoint is the OTLP/HTTP collector for shutdown metrics. Empty
	// disables export.
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,endpoint"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

func (c *demoConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Probe.ApplyDefaults()
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

func (c *demoConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Probe); err != nil {
		return fmt.Errorf("config.probe: %w", err)
	}
	if err := validation.Validate(&c.Metrics); err != nil {
		return fmt.Errorf("config.metrics: %w", err)
	}
	return nil
}

// globals are the persistent flags shared by every command.
type globals struct {
	configFile string
	logLevel   string
	logFormat  string
}

// shutdownFlags override the shutdown section of the config file.
type shutdownFlags struct {
	timeout   time.Duration
	endpoint  string
	policy    string
	flush     time.Duration
	metrics   string
	probePort int
}

func (f *shutdownFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Graceful shutdown timeout (default from config, 15s)")
	cmd.Flags().StringVar(&f.endpoint, "crash-endpoint", "", "OTLP collector receiving captured errors")
	cmd.Flags().StringVar(&f.policy, "rejection-policy", "", "Unhandled failure policy: shutdown or crash")
	cmd.Flags().DurationVar(&f.flush, "flush-timeout", 0, "Crash reporter flush timeout")
	cmd.Flags().StringVar(&f.metrics, "metrics-endpoint", "", "OTLP collector receiving shutdown metrics")
	cmd.Flags().IntVar(&f.probePort, "probe-port", -1, "Serve probes on this port (0 picks a free port)")
}

// load reads the config file and environment, then applies flag overrides,
// defaults and validation.
func (g *globals) load(cmd *cobra.Command, f *shutdownFlags) (*demoConfig, *logger.Logger, error) {
	cfg := &demoConfig{}
	var opts []config.LoaderOption
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, nil, err
	}

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	if f != nil {
		if f.timeout > 0 {
			cfg.Shutdown.Timeout = f.timeout
		}
		if f.endpoint != "" {
			cfg.Shutdown.CrashReporterEndpoint = f.endpoint
		}
		if f.policy != "" {
			cfg.Shutdown.RejectionPolicy = f.policy
		}
		if f.flush > 0 {
			cfg.Shutdown.FlushTimeout = f.flush
		}
		if f.metrics != "" {
			cfg.Metrics.Endpoint = f.metrics
		}
		if f.probePort >= 0 {
			cfg.Probe.Enabled = true
			cfg.Probe.Port = f.probePort
		}
	}

	// Port 0 is a request for a free port, not an unset field.
	port := cfg.Probe.Port
	cfg.ApplyDefaults()
	if f != nil && f.probePort == 0 {
		cfg.Probe.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr())
	logger.SetGlobalLogger(log)
	return cfg, log, nil
}
