package validation

import (
	"net"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/graceful/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their config key
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "yaml", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					break
				}
				if name != "" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})

		_ = validate.RegisterValidation("endpoint", func(fl validator.FieldLevel) bool {
			return IsEndpoint(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct using struct tags such as
// `validate:"required,gt=0"` and the custom `endpoint` tag.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidConfig("validation failed").WithCause(err)
	}

	v := New()
	for _, e := range validationErrors {
		v.AddError(fieldPath(e), formatValidationError(e))
	}
	return v.Validate()
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte", "min":
		return "must be at least " + e.Param()
	case "lte", "max":
		return "must be at most " + e.Param()
	case "url":
		return "must be a valid URL"
	case "endpoint":
		return "must be host:port or an http(s) URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// IsEndpoint reports whether s is a host:port pair or an absolute http(s)
// URL.
func IsEndpoint(s string) bool {
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}
	host, port, err := net.SplitHostPort(s)
	return err == nil && host != "" && port != ""
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
