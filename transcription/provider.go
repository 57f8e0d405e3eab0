package transcription

import (
	"context"

	"github.com/kbukum/captionkit/provider"
)

// Provider is a speech-to-text backend.
type Provider interface {
	provider.Provider
	Transcribe(ctx context.Context, req AudioRequest) (*Transcript, error)
}

// ManagerOption configures NewManager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	selector provider.Selector[Provider]
}

// WithSelector sets the selection strategy.
func WithSelector(s provider.Selector[Provider]) ManagerOption {
	return func(c *managerConfig) { c.selector = s }
}

// WithPriority selects the first available backend in the given order.
func WithPriority(names ...string) ManagerOption {
	return WithSelector(&provider.PrioritySelector[Provider]{Priority: names})
}

// NewManager creates a backend manager. Without options the first healthy
// backend is used.
func NewManager(opts ...ManagerOption) *provider.Manager[Provider] {
	cfg := &managerConfig{selector: &provider.HealthCheckSelector[Provider]{}}
	for _, o := range opts {
		o(cfg)
	}
	return provider.NewManager(provider.NewRegistry[Provider](), cfg.selector)
}

// asRequestResponse lets backends be wrapped by the provider middlewares.
func asRequestResponse(p Provider) provider.RequestResponse[AudioRequest, *Transcript] {
	return rrAdapter{p}
}

type rrAdapter struct{ Provider }

func (a rrAdapter) Execute(ctx context.Context, req AudioRequest) (*Transcript, error) {
	return a.Transcribe(ctx, req)
}
