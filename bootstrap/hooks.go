package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback. Services register hooks to perform setup and
// teardown without bootstrap knowing about specific infrastructure.
type Hook func(ctx context.Context) error

const (
	phaseStart = "onStart"
	phaseReady = "onReady"
	phaseStop  = "onStop"
)

// OnStart registers a hook that runs after all components are started but
// before the coordinator is armed.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers a hook that runs once the shutdown coordinator is armed,
// just before readiness is reported to the supervisor. A failing OnReady
// hook starts a shutdown.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers a hook that runs during graceful shutdown before
// components are stopped, e.g. to drain connections. Its context is
// cancelled when the shutdown times out.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks executes hooks in order and stops at the first error.
func runHooks(ctx context.Context, phase string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d failed: %w", phase, i, err)
		}
	}
	return nil
}

// drainHooks executes every hook in order, even after failures, and joins
// the errors. Teardown must not skip later hooks because an earlier one
// failed.
func drainHooks(ctx context.Context, phase string, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %d failed: %w", phase, i, err))
		}
	}
	return errors.Join(errs...)
}
