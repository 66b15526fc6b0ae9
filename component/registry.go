package component

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/graceful/logger"
)

// componentEntry holds a component and its started state.
type componentEntry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries []*componentEntry
	lookup  map[string]*componentEntry
	mu      sync.RWMutex
	log     *logger.Logger

	// lifecycle serializes StartAll and StopAll.
	lifecycle sync.Mutex
}

// NewRegistry creates a new component registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]*componentEntry, 0),
		lookup:  make(map[string]*componentEntry),
		log:     logger.WithComponent("registry"),
	}
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(l *logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = l
}

// Register adds a component to the registry. Components are started in
// the order they are registered, so register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	r.log.Debug("Component registered", logger.ComponentFields(name, nil))
	return nil
}

// StartAll starts all components in registration order. It stops at the
// first failure; components started so far stay started so that StopAll
// releases them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	entries, log := r.snapshot()
	log.Info("Starting all components", logger.Fields("count", len(entries)))

	for _, entry := range entries {
		if r.isStarted(entry) {
			continue
		}
		name := entry.component.Name()
		if err := entry.component.Start(ctx); err != nil {
			log.Error("Component start failed", logger.ComponentFields(name, err))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		r.setStarted(entry, true)
		log.Debug("Component started", logger.ComponentFields(name, nil))
	}

	log.Info("All components started successfully")
	return nil
}

// StopAll stops started components in reverse registration order. Every
// component is attempted even if an earlier one fails; the failures are
// joined. Health checks stay answerable while components stop.
func (r *Registry) StopAll(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	entries, log := r.snapshot()
	log = log.WithContext(ctx)
	log.Info("Stopping all components")

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !r.isStarted(entry) {
			continue
		}

		name := entry.component.Name()
		if err := entry.component.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			log.Error("Component stop failed", logger.ComponentFields(name, err))
		} else {
			log.Info("Component stopped", logger.ComponentFields(name, nil))
		}
		r.setStarted(entry, false)
	}

	return errors.Join(errs...)
}

func (r *Registry) snapshot() ([]*componentEntry, *logger.Logger) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*componentEntry(nil), r.entries...), r.log
}

func (r *Registry) isStarted(e *componentEntry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.started
}

func (r *Registry) setStarted(e *componentEntry, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.started = started
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}
