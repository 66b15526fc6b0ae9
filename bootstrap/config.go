package bootstrap

import (
	"github.com/kbukum/graceful/config"
)

// Config constrains the configuration type of an App. Embedding
// config.ServiceConfig by value satisfies it through promoted methods; the
// embedded shutdown section then drives the coordinator's timeout, rejection
// policy and crash reporter.
//
//	type ServerConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Probe probe.Config   `yaml:"probe" mapstructure:"probe"`
//	}
//
//	app, err := bootstrap.NewApp[*ServerConfig](&cfg, bootstrap.WithProbe(cfg.Probe))
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
