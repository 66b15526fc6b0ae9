package component

import (
	"context"
	"sync/atomic"
)

// Func is a Component built from plain functions. Nil functions are
// no-ops.
type Func struct {
	name    string
	start   func(ctx context.Context) error
	stop    func(ctx context.Context) error
	running atomic.Bool
}

var _ Component = (*Func)(nil)

// NewFunc creates a Func component.
func NewFunc(name string, start, stop func(ctx context.Context) error) *Func {
	return &Func{name: name, start: start, stop: stop}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Start(ctx context.Context) error {
	if f.start != nil {
		if err := f.start(ctx); err != nil {
			return err
		}
	}
	f.running.Store(true)
	return nil
}

func (f *Func) Stop(ctx context.Context) error {
	f.running.Store(false)
	if f.stop != nil {
		return f.stop(ctx)
	}
	return nil
}

// Health is healthy between Start and Stop.
func (f *Func) Health(context.Context) Health {
	if f.running.Load() {
		return Health{Name: f.name, Status: StatusHealthy}
	}
	return Health{Name: f.name, Status: StatusUnhealthy, Message: "not running"}
}
