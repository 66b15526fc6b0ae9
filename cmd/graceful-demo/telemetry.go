package main

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/graceful/bootstrap"
	"github.com/kbukum/graceful/observability"
	"github.com/kbukum/graceful/shutdown"
	"github.com/kbukum/graceful/version"
)

// bootstrapOptions maps the config onto bootstrap options. The returned
// provider, if any, must be shut down by the caller.
func bootstrapOptions(ctx context.Context, cfg *demoConfig) ([]bootstrap.Option, *sdkmetric.MeterProvider, error) {
	opts := []bootstrap.Option{
		bootstrap.WithService(cfg.Name, version.Get().Short(), cfg.Environment),
		bootstrap.WithCrashReporter(cfg.Shutdown.CrashReporterEndpoint),
		bootstrap.WithRejectionPolicy(shutdown.RejectionPolicy(cfg.Shutdown.RejectionPolicy)),
		bootstrap.WithFlushTimeout(cfg.Shutdown.FlushTimeout),
	}
	if cfg.Metrics.Endpoint == "" {
		return opts, nil, nil
	}

	mc := observability.DefaultMeterConfig(cfg.Name)
	mc.ServiceVersion = version.Get().Short()
	mc.Environment = cfg.Environment
	mc.Endpoint = cfg.Metrics.Endpoint
	mc.Interval = cfg.Metrics.Interval

	mp, err := observability.InitMeter(ctx, &mc)
	if err != nil {
		return nil, nil, err
	}
	return append(opts, bootstrap.WithMeterProvider(mp)), mp, nil
}
