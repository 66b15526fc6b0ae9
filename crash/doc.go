// Package crash forwards errors captured during shutdown to a remote crash
// reporting backend.
//
// The reporter exports each captured error as an OpenTelemetry span carrying
// the error event, its code and, for panics, the goroutine stack. Any OTLP
// collector can receive them; the endpoint is the one given to
// bootstrap.WithCrashReporter.
package crash
