package shutdown

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
)

// Stable log lines. Operators grep for these.
const (
	LogInitiated     = "[SHUTDOWN] Graceful shutdown initiated"
	LogTimedOut      = "[SHUTDOWN] The graceful shutdown has timed out"
	LogErrorSummary  = "[SHUTDOWN] The following errors occurred during the graceful shutdown:"
	LogCapturedError = "[SHUTDOWN] Captured error"
	LogExiting       = "[SHUTDOWN] Exiting"
)

// Coordinator serializes any number of shutdown triggers into exactly one run
// of the cleanup action, bounded by a watchdog, followed by process exit.
//
// The zero value is not usable; create one with New.
type Coordinator struct {
	cleanup Cleanup
	timeout time.Duration
	opts    *options
	log     *logger.Logger

	// raise re-raises an unhandled failure under PolicyCrash.
	raise func(err error)

	runCtx    context.Context
	runCancel context.CancelFunc

	mu          sync.Mutex
	state       State
	armed       bool
	subs        []Subscription
	cancelClean context.CancelFunc
	done        chan struct{}
}

// New creates a Coordinator for cleanup. timeout bounds the whole cleanup.
func New(cleanup Cleanup, timeout time.Duration, opts ...Option) (*Coordinator, error) {
	if cleanup == nil {
		return nil, apperrors.InvalidConfig("shutdown: cleanup is required")
	}
	if timeout <= 0 {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("shutdown: timeout must be positive (got: %s)", timeout))
	}
	o := resolveOptions(opts)
	if !o.policy.Valid() {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("shutdown: unknown rejection policy %q", o.policy))
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	return &Coordinator{
		cleanup:   cleanup,
		timeout:   timeout,
		opts:      o,
		log:       o.logger,
		raise:     reraise,
		runCtx:    runCtx,
		runCancel: runCancel,
		state:     State{Phase: PhaseIdle},
		done:      make(chan struct{}),
	}, nil
}

// Arm subscribes every source. It is meant to be called once; later calls
// are no-ops. If any source fails to subscribe, the ones already subscribed
// are closed and the error is returned.
func (c *Coordinator) Arm(sources ...Source) error {
	c.mu.Lock()
	if c.armed {
		c.mu.Unlock()
		c.log.Warn("Shutdown coordinator already armed")
		return nil
	}
	if c.state.Phase != PhaseIdle {
		c.mu.Unlock()
		return apperrors.Internal(fmt.Errorf("shutdown: cannot arm in phase %s", c.state.Phase))
	}
	c.armed = true
	c.mu.Unlock()

	subs := make([]Subscription, 0, len(sources))
	for i, src := range sources {
		sub, err := src.Subscribe(c.Trigger)
		if err != nil {
			closeAll(subs)
			c.mu.Lock()
			c.armed = false
			c.mu.Unlock()
			return fmt.Errorf("shutdown: subscribing source %d: %w", i, err)
		}
		subs = append(subs, sub)
	}

	c.mu.Lock()
	if c.state.Phase == PhaseTerminated {
		c.mu.Unlock()
		closeAll(subs)
		return nil
	}
	c.subs = append(c.subs, subs...)
	c.mu.Unlock()

	c.log.Debug("Shutdown coordinator armed", logger.Fields(
		"sources", len(sources),
		logger.FieldTimeout, c.timeout.String(),
	))
	return nil
}

// Trigger requests a shutdown. Only the first trigger starts the cleanup;
// errors carried by later triggers are queued and reported at exit. Trigger
// never blocks on the cleanup.
func (c *Coordinator) Trigger(t Trigger) {
	c.mu.Lock()
	switch c.state.Phase {
	case PhaseTerminated:
		c.mu.Unlock()
		return
	case PhaseShuttingDown:
		if t.Err != nil {
			c.state.Queued = append(c.state.Queued, t.Err)
		}
		c.mu.Unlock()
		return
	}

	id := uuid.NewString()
	c.state.Phase = PhaseShuttingDown
	c.state.ID = id
	c.state.Trigger = t
	c.state.Primary = t.Err
	c.state.StartedAt = time.Now()

	cleanCtx, cancel := context.WithCancel(logger.ContextWithShutdownID(context.Background(), id))
	c.cancelClean = cancel
	c.state.watchdog = time.AfterFunc(c.timeout, c.expire)
	c.mu.Unlock()

	c.runCancel()

	fields := logger.Fields(
		logger.FieldShutdownID, id,
		logger.FieldTrigger, t.String(),
		logger.FieldTimeout, c.timeout.String(),
	)
	if t.Err != nil {
		fields[logger.FieldError] = t.Err.Error()
		c.log.Error(LogInitiated, fields)
	} else {
		c.log.Info(LogInitiated, fields)
	}

	for _, obs := range c.opts.observers {
		obs.ShutdownInitiated(cleanCtx, t)
	}

	go c.runCleanup(cleanCtx)
}

// Shutdown is a programmatic trigger without an error.
func (c *Coordinator) Shutdown() {
	c.Trigger(Trigger{Source: SourceManual})
}

// Fail triggers a shutdown caused by err.
func (c *Coordinator) Fail(err error) {
	if err == nil {
		c.Shutdown()
		return
	}
	c.Trigger(Trigger{Source: SourceError, Err: err})
}

// Done is closed once the exit function returns. With os.Exit it never closes.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the shutdown sequence has finished and returns the exit
// code handed to the exit function.
func (c *Coordinator) Wait() int {
	<-c.done
	return c.ExitCode()
}

// ExitCode returns the decided exit code, or ExitCodeSuccess while running.
func (c *Coordinator) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ExitCode
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot()
}

// Context is cancelled as soon as a shutdown is initiated. Pass it to
// long-running work so it stops accepting new jobs.
func (c *Coordinator) Context() context.Context {
	return c.runCtx
}

// runCleanup invokes the cleanup exactly once and finalizes with its result.
func (c *Coordinator) runCleanup(ctx context.Context) {
	c.finalize(c.invokeCleanup(ctx), false)
}

func (c *Coordinator) invokeCleanup(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Panic(r, debug.Stack())
		}
	}()
	if cerr := c.cleanup(ctx); cerr != nil {
		return apperrors.CleanupFailed(cerr)
	}
	return nil
}

// expire runs when the watchdog fires before the cleanup settles.
func (c *Coordinator) expire() {
	c.finalize(nil, true)
}

// finalize ends the shutdown sequence. Whichever of cleanup completion and
// watchdog expiry arrives first wins; the other call is a no-op.
func (c *Coordinator) finalize(err error, timedOut bool) {
	c.mu.Lock()
	if c.state.Phase != PhaseShuttingDown {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state.Queued = append(c.state.Queued, err)
	}
	if c.state.watchdog != nil {
		c.state.watchdog.Stop()
		c.state.watchdog = nil
	}
	c.state.TimedOut = timedOut
	c.state.Phase = PhaseTerminated
	code := ExitCodeSuccess
	if c.state.Failed() {
		code = ExitCodeFailure
	}
	c.state.ExitCode = code
	st := c.state.snapshot()
	subs := c.subs
	c.subs = nil
	cancel := c.cancelClean
	c.mu.Unlock()

	// The cleanup is abandoned on timeout; cancelling lets it unwind.
	cancel()

	if timedOut {
		c.log.Warn(LogTimedOut, logger.ShutdownFields(st.ID, logger.FieldTimeout, c.timeout.String()))
	}

	errs := st.Errors()
	if len(errs) > 0 {
		c.log.Error(LogErrorSummary, logger.ShutdownFields(st.ID))
		for i, e := range errs {
			c.log.Error(LogCapturedError, logger.ShutdownFields(st.ID,
				logger.FieldIndex, i,
				logger.FieldError, e.Error(),
			))
		}
	}

	c.report(st, errs)

	report := Report{
		ID:       st.ID,
		Trigger:  st.Trigger,
		Errors:   errs,
		TimedOut: st.TimedOut,
		Duration: time.Since(st.StartedAt),
		ExitCode: code,
	}
	for _, obs := range c.opts.observers {
		obs.ShutdownFinished(context.Background(), report)
	}
	c.flush(st.ID)

	// Sources stay subscribed until here so that a repeated signal during the
	// flushes is absorbed instead of killing the process.
	closeAll(subs)

	c.log.Info(LogExiting, logger.ShutdownFields(st.ID,
		logger.FieldExitCode, code,
		logger.FieldDuration, report.Duration.Milliseconds(),
	))

	// done closes only once exit returns, so nothing waiting on it can end
	// the process before exit runs.
	c.opts.exit(code)
	close(c.done)
}

// flush pushes out telemetry recorded by the observers.
func (c *Coordinator) flush(id string) {
	for _, f := range c.opts.flushers {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.flushTimeout)
		if err := f.ForceFlush(ctx); err != nil {
			c.log.Warn("Telemetry flush failed", logger.ShutdownFields(id, logger.FieldError, err.Error()))
		}
		cancel()
	}
}

// report hands every captured error to the reporter and flushes it within
// the flush timeout.
func (c *Coordinator) report(st State, errs []error) {
	r := c.opts.reporter
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.flushTimeout)
	defer cancel()
	ctx = logger.ContextWithShutdownID(ctx, st.ID)

	for _, e := range errs {
		r.Capture(ctx, e)
	}
	if st.TimedOut {
		r.Capture(ctx, apperrors.ShutdownTimeout(c.timeout))
	}
	if err := r.Flush(ctx); err != nil {
		c.log.Warn("Crash reporter flush failed", logger.ShutdownFields(st.ID, logger.FieldError, err.Error()))
	}
}

func closeAll(subs []Subscription) {
	for _, s := range subs {
		_ = s.Close()
	}
}
