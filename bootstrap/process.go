package bootstrap

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/kbukum/graceful/config"
	"github.com/kbukum/graceful/crash"
	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/observability"
	"github.com/kbukum/graceful/shutdown"
	"github.com/kbukum/graceful/supervisor"
)

// Process is an initialized process: signal handlers installed, supervisor
// channel connected, shutdown coordinator armed.
type Process struct {
	coord   *shutdown.Coordinator
	channel supervisor.Channel
	log     *logger.Logger
	ready   atomic.Bool
}

// Initialize prepares the process for a graceful shutdown running cleanup
// within timeout. In order it loads the .env file, wires the crash reporter,
// builds the coordinator, connects to the supervisor and arms the
// termination signals and the supervisor's "shutdown" message.
//
//	proc, err := bootstrap.Initialize(cleanup, 15*time.Second,
//	    bootstrap.WithCrashReporter(os.Getenv("CRASH_ENDPOINT")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Recover()
//	// start serving
//	proc.Ready()
//	select {} // the coordinator exits the process
func Initialize(cleanup shutdown.Cleanup, timeout time.Duration, opts ...Option) (*Process, error) {
	o := resolveOptions(opts)
	return initialize(context.Background(), cleanup, timeout, o)
}

func initialize(ctx context.Context, cleanup shutdown.Cleanup, timeout time.Duration, o *options) (*Process, error) {
	if err := o.validate(timeout); err != nil {
		return nil, err
	}

	log := o.logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	if err := config.LoadEnv(o.envFiles...); err != nil {
		return nil, err
	}

	// A reporter built here is released again if initialization fails
	// further on; a caller-supplied one stays the caller's.
	var owned shutdown.Reporter
	if o.reporter == nil && o.crashEndpoint != "" {
		r, err := o.newReporter(ctx, crash.Config{
			Endpoint:       o.crashEndpoint,
			ServiceName:    o.serviceName,
			ServiceVersion: o.serviceVersion,
			Environment:    o.environment,
			// host:port collectors are plain HTTP; give an https:// URL for TLS.
			Insecure: true,
		})
		if err != nil {
			return nil, fmt.Errorf("crash reporter: %w", err)
		}
		o.reporter = r
		owned = r
		log.Debug("Crash reporter enabled", logger.Fields("endpoint", o.crashEndpoint))
	}
	fail := func(err error) (*Process, error) {
		if owned != nil {
			o.release(owned)
		}
		return nil, err
	}

	p := &Process{log: log}

	copts := o.coordinatorOptions()
	copts = append(copts, shutdown.WithObserver(p))
	if o.meter != nil {
		m, err := observability.NewShutdownMetrics(o.meter)
		if err != nil {
			return fail(fmt.Errorf("shutdown metrics: %w", err))
		}
		copts = append(copts, shutdown.WithObserver(m))
	}

	coord, err := shutdown.New(cleanup, timeout, copts...)
	if err != nil {
		return fail(err)
	}
	p.coord = coord

	ch := o.channel
	if ch == nil {
		ch, err = supervisor.Detect(log.WithComponent("supervisor"))
		if err != nil {
			return fail(err)
		}
	}
	p.channel = ch

	err = coord.Arm(
		shutdown.Signals(),
		shutdown.Messages(ch),
		closer(ch),
	)
	if err != nil {
		_ = ch.Close()
		return fail(err)
	}

	log.Info("Process initialized", logger.Fields(
		"supervisor", ch.Kind(),
		logger.FieldTimeout, timeout.String(),
	))
	return p, nil
}

// release flushes and stops a reporter that will never be handed to a
// coordinator.
func (o *options) release(r shutdown.Reporter) {
	timeout := o.flushTimeout
	if timeout <= 0 {
		timeout = shutdown.DefaultFlushTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = r.Flush(ctx)
}

// closer is a Source that never fires; its subscription closes ch when the
// coordinator finalizes.
func closer(ch supervisor.Channel) shutdown.Source {
	return shutdown.SourceFunc(func(func(shutdown.Trigger)) (shutdown.Subscription, error) {
		return shutdown.SubscriptionFunc(ch.Close), nil
	})
}

// Ready tells the supervisor the process is ready to serve.
func (p *Process) Ready() {
	if p.coord.Phase() != shutdown.PhaseIdle {
		return
	}
	if err := p.channel.Notify(supervisor.MessageReady); err != nil {
		p.log.Warn("Readiness notification failed", logger.Fields(logger.FieldError, err.Error()))
	}
	p.ready.Store(true)
	p.log.Info("Process ready")
}

// IsReady reports whether Ready was called and no shutdown has begun.
func (p *Process) IsReady() bool {
	return p.ready.Load() && p.coord.Phase() == shutdown.PhaseIdle
}

// Phase returns the coordinator's phase.
func (p *Process) Phase() shutdown.Phase {
	return p.coord.Phase()
}

// Coordinator returns the shutdown coordinator.
func (p *Process) Coordinator() *shutdown.Coordinator {
	return p.coord
}

// Channel returns the supervisor channel.
func (p *Process) Channel() supervisor.Channel {
	return p.channel
}

// Recover turns a panic into a shutdown. Defer it at the top of main.
func (p *Process) Recover() {
	// recover only works when called directly by the deferred function.
	if r := recover(); r != nil {
		p.coord.Trigger(shutdown.Trigger{Source: shutdown.SourcePanic, Err: apperrors.Panic(r, debug.Stack())})
		<-p.coord.Done()
	}
}

// Go runs fn under the coordinator's rejection policy.
func (p *Process) Go(fn func(ctx context.Context) error) {
	p.coord.Go(fn)
}

// ShutdownInitiated tells the supervisor the process is stopping.
func (p *Process) ShutdownInitiated(context.Context, shutdown.Trigger) {
	p.ready.Store(false)
	if err := p.channel.Notify(supervisor.MessageStopping); err != nil {
		p.log.Debug("Stopping notification failed", logger.Fields(logger.FieldError, err.Error()))
	}
}

// ShutdownFinished implements shutdown.Observer.
func (p *Process) ShutdownFinished(context.Context, shutdown.Report) {}
