package shutdown

import (
	"context"
	"os"
	"time"

	"github.com/kbukum/graceful/logger"
)

// Cleanup is the user-supplied shutdown action. ctx is cancelled when the
// watchdog fires; a cleanup that ignores it is abandoned and keeps running
// until the process exits.
type Cleanup func(ctx context.Context) error

// Reporter receives every captured error before the process exits.
type Reporter interface {
	Capture(ctx context.Context, err error)
	Flush(ctx context.Context) error
}

// Flusher exports buffered telemetry. *sdkmetric.MeterProvider and
// *sdktrace.TracerProvider satisfy it.
type Flusher interface {
	ForceFlush(ctx context.Context) error
}

// Observer is notified at the two edges of the shutdown sequence.
type Observer interface {
	ShutdownInitiated(ctx context.Context, t Trigger)
	ShutdownFinished(ctx context.Context, r Report)
}

// Report summarizes a finished shutdown sequence.
type Report struct {
	ID       string
	Trigger  Trigger
	Errors   []error
	TimedOut bool
	Duration time.Duration
	ExitCode int
}

// RejectionPolicy decides what happens to an error returned by detached
// background work that nobody is waiting on.
type RejectionPolicy string

const (
	// PolicyShutdown routes the failure into the coordinator as a trigger.
	PolicyShutdown RejectionPolicy = "shutdown"
	// PolicyCrash re-raises the failure as an unrecovered panic, leaving the
	// process to the runtime's default fatal handling.
	PolicyCrash RejectionPolicy = "crash"
)

// Valid reports whether p is a known policy.
func (p RejectionPolicy) Valid() bool {
	return p == PolicyShutdown || p == PolicyCrash
}

// DefaultFlushTimeout bounds the reporter and telemetry flushes unless
// WithFlushTimeout says otherwise.
const DefaultFlushTimeout = 2 * time.Second

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	logger       *logger.Logger
	exit         func(code int)
	reporter     Reporter
	observers    []Observer
	flushers     []Flusher
	policy       RejectionPolicy
	flushTimeout time.Duration
}

func resolveOptions(opts []Option) *options {
	o := &options{
		exit:         os.Exit,
		policy:       PolicyShutdown,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.WithComponent("shutdown")
	}
	return o
}

// WithLogger sets the logger for shutdown log lines.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithExit replaces os.Exit. Tests use this to observe the exit code.
func WithExit(exit func(code int)) Option {
	return func(o *options) {
		o.exit = exit
	}
}

// WithReporter sets the crash reporter that receives captured errors.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithFlusher adds a Flusher that is flushed after the observers saw the
// finished shutdown and before exit, within the flush timeout. May be given
// more than once.
func WithFlusher(f Flusher) Option {
	return func(o *options) {
		o.flushers = append(o.flushers, f)
	}
}

// WithRejectionPolicy sets how unhandled background failures are treated.
func WithRejectionPolicy(p RejectionPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithFlushTimeout bounds how long the reporter and each Flusher may flush
// before exit.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		o.flushTimeout = d
	}
}
