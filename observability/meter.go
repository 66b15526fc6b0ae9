package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/shutdown"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ShutdownMetrics records shutdown sequences. It is a shutdown.Observer.
type ShutdownMetrics struct {
	triggers metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	timeouts metric.Int64Counter
}

var _ shutdown.Observer = (*ShutdownMetrics)(nil)

// NewShutdownMetrics creates the shutdown instruments on meter.
func NewShutdownMetrics(meter metric.Meter) (*ShutdownMetrics, error) {
	triggers, err := meter.Int64Counter("shutdown.triggers",
		metric.WithDescription("Shutdown sequences started, by trigger source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shutdown.triggers counter: %w", err)
	}

	duration, err := meter.Float64Histogram("shutdown.duration",
		metric.WithDescription("Time from shutdown initiation to exit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shutdown.duration histogram: %w", err)
	}

	errs, err := meter.Int64Counter("shutdown.errors",
		metric.WithDescription("Errors captured during shutdown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shutdown.errors counter: %w", err)
	}

	timeouts, err := meter.Int64Counter("shutdown.timeouts",
		metric.WithDescription("Shutdown sequences ended by the watchdog"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shutdown.timeouts counter: %w", err)
	}

	return &ShutdownMetrics{
		triggers: triggers,
		duration: duration,
		errors:   errs,
		timeouts: timeouts,
	}, nil
}

// ShutdownInitiated counts the trigger by source.
func (m *ShutdownMetrics) ShutdownInitiated(ctx context.Context, t shutdown.Trigger) {
	m.triggers.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSource, t.Source),
		attribute.String(AttrTrigger, t.String()),
	))
}

// ShutdownFinished records the outcome of the sequence.
func (m *ShutdownMetrics) ShutdownFinished(ctx context.Context, r shutdown.Report) {
	attrs := metric.WithAttributes(
		attribute.String(AttrSource, r.Trigger.Source),
		attribute.Int(AttrExitCode, r.ExitCode),
		attribute.Bool(AttrTimedOut, r.TimedOut),
	)
	m.duration.Record(ctx, r.Duration.Seconds(), attrs)
	if n := len(r.Errors); n > 0 {
		m.errors.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrSource, r.Trigger.Source)))
	}
	if r.TimedOut {
		m.timeouts.Add(ctx, 1)
	}
}
