// Package errors provides the typed errors used across the shutdown lifecycle.
// Each AppError carries a machine-readable code, an optional cause and an
// HTTP status used by the probe endpoints.
package errors
