package provider

import "context"

// Provider is the base interface all providers implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable reports whether the provider can serve requests right now
	// (binary on PATH, endpoint configured).
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from a loosely typed config map.
type Factory[T Provider] func(cfg map[string]any) (T, error)
