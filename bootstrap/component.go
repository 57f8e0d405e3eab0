package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/captionkit/logger"
	"github.com/kbukum/captionkit/observability"
)

// Component is a lifecycle-managed piece of infrastructure: the database,
// the Redis cache, the HTTP server.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	observability.HealthChecker
}

// Describable components contribute a line to the startup summary.
type Describable interface {
	Describe() string
}

type registry struct {
	mu      sync.Mutex
	entries []*entry
	names   map[string]bool
	log     *logger.Logger
}

type entry struct {
	c       Component
	started bool
}

func newRegistry(log *logger.Logger) *registry {
	return &registry{names: map[string]bool{}, log: log}
}

func (r *registry) register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[c.Name()] {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.names[c.Name()] = true
	r.entries = append(r.entries, &entry{c: c})
	return nil
}

// startAll starts components in registration order and stops at the first failure.
func (r *registry) startAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if err := e.c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields(logger.FieldComponent, e.c.Name(), logger.FieldError, err.Error()))
			return fmt.Errorf("failed to start %s: %w", e.c.Name(), err)
		}
		e.started = true
		r.log.Debug("component started", logger.Fields(logger.FieldComponent, e.c.Name()))
	}
	return nil
}

// stopAll stops started components in reverse order and joins their errors.
func (r *registry) stopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		if err := e.c.Stop(ctx); err != nil {
			r.log.Error("component stop failed", logger.Fields(logger.FieldComponent, e.c.Name(), logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", e.c.Name(), err))
		}
		e.started = false
	}
	return errors.Join(errs...)
}

func (r *registry) checkers() []observability.HealthChecker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observability.HealthChecker, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}

func (r *registry) components() []Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}
