// Package validation checks configuration before the process starts.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report an
// INVALID_CONFIG errors.AppError whose "fields" detail lists every failure.
//
// # Struct Tag Validation
//
//	type ShutdownConfig struct {
//	    Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
//	    Endpoint string        `mapstructure:"crash_reporter_endpoint" validate:"omitempty,endpoint"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Positive("timeout", timeout).
//	    Endpoint("crash_reporter_endpoint", endpoint).
//	    Err()
package validation
