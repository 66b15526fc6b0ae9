// Package config loads process configuration.
//
// Values come from a YAML file, a .env file and the environment, in
// increasing order of precedence. Environment variable names map onto
// nested keys by underscores, so SHUTDOWN_TIMEOUT=30s sets shutdown.timeout.
//
//	var cfg MyConfig
//	if err := config.LoadConfig("my-service", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
