package bootstrap

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/graceful/crash"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/probe"
	"github.com/kbukum/graceful/shutdown"
	"github.com/kbukum/graceful/supervisor"
	"github.com/kbukum/graceful/validation"
)

// Option configures Initialize and NewApp.
// Options are non-generic so they can be used with any config type.
type Option func(*options)

// options collects all option values before they are applied.
type options struct {
	logger          *logger.Logger
	serviceName     string
	serviceVersion  string
	environment     string
	envFiles        []string
	crashEndpoint   string
	reporter        shutdown.Reporter
	meter           metric.Meter
	flushers        []shutdown.Flusher
	newReporter     func(context.Context, crash.Config) (shutdown.Reporter, error)
	observers       []shutdown.Observer
	policy          shutdown.RejectionPolicy
	flushTimeout    time.Duration
	exit            func(code int)
	channel         supervisor.Channel
	gracefulTimeout *time.Duration
	probe           *probe.Config
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *options {
	o := &options{newReporter: newOTLPReporter}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger.
// If not set, NewApp initializes the logger from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithService names the service in crash reports and telemetry.
func WithService(name, version, environment string) Option {
	return func(o *options) {
		o.serviceName = name
		o.serviceVersion = version
		o.environment = environment
	}
}

// WithEnvFiles sets the .env files loaded before anything else. Defaults
// to ".env"; missing files are ignored.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = paths
	}
}

// WithCrashReporter exports every captured error to the OTLP collector at
// endpoint. An empty endpoint disables crash reporting.
func WithCrashReporter(endpoint string) Option {
	return func(o *options) {
		o.crashEndpoint = endpoint
	}
}

// WithReporter sets the crash reporter directly. It takes precedence over
// WithCrashReporter.
func WithReporter(r shutdown.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithMeter records shutdown metrics on meter.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithMeterProvider records shutdown metrics on mp and flushes it before
// exit, so the last datapoints are not lost to the export interval.
func WithMeterProvider(mp *sdkmetric.MeterProvider) Option {
	return func(o *options) {
		o.meter = mp.Meter(meterName)
		o.flushers = append(o.flushers, mp)
	}
}

// WithFlusher flushes f before exit. May be given more than once.
func WithFlusher(f shutdown.Flusher) Option {
	return func(o *options) {
		o.flushers = append(o.flushers, f)
	}
}

// WithObserver adds a shutdown observer. May be given more than once.
func WithObserver(obs shutdown.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithRejectionPolicy sets how unhandled background failures are treated.
func WithRejectionPolicy(p shutdown.RejectionPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithFlushTimeout bounds the crash reporter flush and each telemetry flush
// before exit.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		o.flushTimeout = d
	}
}

// WithExit replaces the exit function. Initialize defaults to os.Exit; an
// App never exits on its own and reports the exit code from Run instead.
func WithExit(exit func(code int)) Option {
	return func(o *options) {
		o.exit = exit
	}
}

// WithChannel sets the supervisor channel instead of detecting it from the
// environment.
func WithChannel(ch supervisor.Channel) Option {
	return func(o *options) {
		o.channel = ch
	}
}

// WithGracefulTimeout overrides the configured shutdown timeout of an App.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) {
		o.gracefulTimeout = &d
	}
}

// WithProbe serves liveness and readiness endpoints for an App. cfg is used
// as given; call cfg.ApplyDefaults first for the default port.
func WithProbe(cfg probe.Config) Option {
	return func(o *options) {
		o.probe = &cfg
	}
}

// validate checks the options before anything is wired, so a bad endpoint
// or policy fails Initialize without touching the network.
func (o *options) validate(timeout time.Duration) error {
	return validation.New().
		Positive("timeout", timeout).
		Endpoint("crash_reporter_endpoint", o.crashEndpoint).
		OneOf("rejection_policy", string(o.policy), []string{
			string(shutdown.PolicyShutdown), string(shutdown.PolicyCrash),
		}).
		Custom(o.flushTimeout >= 0, "flush_timeout", "must not be negative").
		Err()
}

// coordinatorOptions translates options into shutdown.Options.
func (o *options) coordinatorOptions() []shutdown.Option {
	var opts []shutdown.Option
	if o.logger != nil {
		opts = append(opts, shutdown.WithLogger(o.logger.WithComponent("shutdown")))
	}
	if o.exit != nil {
		opts = append(opts, shutdown.WithExit(o.exit))
	}
	if o.reporter != nil {
		opts = append(opts, shutdown.WithReporter(o.reporter))
	}
	if o.policy != "" {
		opts = append(opts, shutdown.WithRejectionPolicy(o.policy))
	}
	if o.flushTimeout > 0 {
		opts = append(opts, shutdown.WithFlushTimeout(o.flushTimeout))
	}
	for _, obs := range o.observers {
		opts = append(opts, shutdown.WithObserver(obs))
	}
	for _, f := range o.flushers {
		opts = append(opts, shutdown.WithFlusher(f))
	}
	return opts
}

const meterName = "github.com/kbukum/graceful"

func newOTLPReporter(ctx context.Context, cfg crash.Config) (shutdown.Reporter, error) {
	r, err := crash.NewOTLP(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}
