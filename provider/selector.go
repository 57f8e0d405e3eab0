package provider

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Selector picks a provider from the initialized ones.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("no available provider in priority list %v", s.Priority)
}

// HealthCheckSelector returns the first available provider by name order.
type HealthCheckSelector[T Provider] struct{}

func (s *HealthCheckSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range slices.Sorted(maps.Keys(providers)) {
		if p := providers[name]; p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("no available provider found")
}
