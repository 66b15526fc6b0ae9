package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbukum/graceful/component"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/probe"
	"github.com/kbukum/graceful/shutdown"
)

// App represents a generic application with uniform lifecycle management.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.ServiceConfig automatically satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&myConfig)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    // a.Cfg is *MyConfig, fully typed
//	    return nil
//	})
//	if err := app.Run(context.Background()); err != nil {
//	    os.Exit(bootstrap.ExitCode(err))
//	}
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	opts    *options
	process atomic.Pointer[Process]

	onConfigure []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	// Logger: use custom if provided, otherwise init from config.
	if o.logger == nil {
		logger.Init(&base.Logging)
		o.logger = logger.GetGlobalLogger()
	}
	if o.serviceName == "" {
		o.serviceName, o.serviceVersion, o.environment = base.Name, base.Version, base.Environment
	}
	if o.crashEndpoint == "" {
		o.crashEndpoint = base.Shutdown.CrashReporterEndpoint
	}
	if o.policy == "" {
		o.policy = shutdown.RejectionPolicy(base.Shutdown.RejectionPolicy)
	}
	if o.flushTimeout == 0 {
		o.flushTimeout = base.Shutdown.FlushTimeout
	}
	if o.gracefulTimeout == nil {
		o.gracefulTimeout = &base.Shutdown.Timeout
	}
	if o.exit == nil {
		// Run reports the exit code; the caller decides whether to exit.
		o.exit = func(int) {}
	}

	app := &App[C]{
		Name:       base.Name,
		Version:    base.Version,
		Cfg:        cfg,
		Components: component.NewRegistry(),
		Logger:     o.logger,
		opts:       o,
	}
	app.Components.SetLogger(o.logger.WithComponent("registry"))

	if o.probe != nil {
		srv := probe.New(*o.probe, base.Name, app, app.Components.HealthAll, o.logger)
		if err := app.Components.Register(srv); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback to run during the configure phase.
// Use this to set up business-layer dependencies after infrastructure is started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Process returns the initialized process, or nil before Run.
func (a *App[C]) Process() *Process {
	return a.process.Load()
}

// IsReady reports whether the application is serving.
func (a *App[C]) IsReady() bool {
	if p := a.process.Load(); p != nil {
		return p.IsReady()
	}
	return false
}

// Phase returns the shutdown phase; idle until Run initializes the process.
func (a *App[C]) Phase() shutdown.Phase {
	if p := a.process.Load(); p != nil {
		return p.Phase()
	}
	return shutdown.PhaseIdle
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run executes the full application lifecycle for long-running services:
// start components → OnStart hooks → configure → ready check → initialize
// the shutdown coordinator → OnReady hooks → report ready → block until the
// coordinator has run the cleanup (OnStop hooks, then components in reverse).
//
// Run returns nil when the shutdown was clean and an *ExitError otherwise.
// Cancelling ctx triggers the shutdown.
func (a *App[C]) Run(ctx context.Context) error {
	p, err := a.launch(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("Application ready, waiting for shutdown")
	return a.wait(ctx, p)
}

// RunTask executes a finite task with the full bootstrap lifecycle.
// The task's completion is the shutdown trigger: a nil result shuts down
// cleanly, an error becomes the primary shutdown error. A signal or
// supervisor message arriving first cancels the task's context.
//
// Use RunTask for CLI tools, batch jobs, and one-shot processes that need
// the same bootstrap infrastructure (config, logger, components, hooks)
// but have a finite workflow instead of running forever.
//
// Example:
//
//	app, _ := bootstrap.NewApp(&cfg)
//	err := app.RunTask(ctx, func(ctx context.Context) error {
//	    return processData(ctx)
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	p, err := a.launch(ctx)
	if err != nil {
		return err
	}

	coord := p.Coordinator()
	go func() {
		defer p.Recover()
		if coord.Phase() != shutdown.PhaseIdle {
			return
		}
		err := task(coord.Context())
		if err != nil && coord.Context().Err() != nil && errors.Is(err, context.Canceled) {
			// The task unwound because a shutdown was already underway.
			return
		}
		coord.Trigger(shutdown.Trigger{Source: shutdown.SourceTask, Err: err})
	}()

	return a.wait(ctx, p)
}

// Shutdown starts the graceful shutdown of a running application.
func (a *App[C]) Shutdown() {
	if p := a.process.Load(); p != nil {
		p.Coordinator().Shutdown()
	}
}

// launch starts everything up to readiness. A failure before the
// coordinator exists stops the components already started.
func (a *App[C]) launch(ctx context.Context) (*Process, error) {
	if err := a.startup(ctx); err != nil {
		a.abort()
		return nil, err
	}

	p, err := initialize(ctx, a.stop, *a.opts.gracefulTimeout, a.opts)
	if err != nil {
		a.abort()
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	a.process.Store(p)

	// From here on failures go through the coordinator.
	if err := runHooks(ctx, phaseReady, a.onReady); err != nil {
		p.Coordinator().Fail(err)
		return p, nil
	}
	p.Ready()
	return p, nil
}

// startup performs the common initialization sequence shared by Run and RunTask.
func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	// Phase 1: Initialize, start all registered components
	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, phaseStart, a.onStart); err != nil {
		return err
	}

	// Phase 2: Configure, run business-layer setup callbacks
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			"error": err.Error(),
		})
	}

	a.Logger.Info("Startup complete", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// initialize starts all registered components (Phase 1).
func (a *App[C]) initialize(ctx context.Context) error {
	a.Logger.Info("Phase 1: Starting components")

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}

	a.Logger.Info("Phase 1: All components started")
	return nil
}

// configure runs registered configuration callbacks (Phase 2).
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}

	a.Logger.Info("Phase 2: Running configuration callbacks", map[string]interface{}{
		"count": len(a.onConfigure),
	})

	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}

	a.Logger.Info("Phase 2: Configuration complete")
	return nil
}

// wait blocks until the coordinator finishes. Cancelling ctx triggers the
// shutdown.
func (a *App[C]) wait(ctx context.Context, p *Process) error {
	coord := p.Coordinator()
	go func() {
		select {
		case <-ctx.Done():
			a.Logger.Info("Context canceled, shutting down")
			coord.Trigger(shutdown.Trigger{Source: shutdown.SourceContext})
		case <-coord.Done():
		}
	}()

	coord.Wait()
	return exitError(coord.Snapshot())
}

// stop is the coordinator's cleanup: OnStop hooks, then every component in
// reverse registration order. ctx is cancelled if the watchdog fires.
func (a *App[C]) stop(ctx context.Context) error {
	log := a.Logger.WithContext(ctx)
	log.Info("Shutting down application", map[string]interface{}{
		"timeout": a.opts.gracefulTimeout.String(),
	})

	var errs []error

	if err := drainHooks(ctx, phaseStop, a.onStop); err != nil {
		errs = append(errs, err)
	}

	// Stop all components (reverse order)
	if err := a.Components.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}

	log.Info("Application shutdown complete")
	return errors.Join(errs...)
}

// abort releases components after a startup failure.
func (a *App[C]) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), *a.opts.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Stopping components after failed startup", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
