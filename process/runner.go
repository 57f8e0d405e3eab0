package process

import (
	"context"

	"github.com/kbukum/captionkit/provider"
)

// Runner executes subprocesses through a persistent resilience chain. Its
// circuit breaker only counts tool failures (see IsToolFailure), so one bad
// input file cannot open the circuit for everyone else.
type Runner struct {
	next  Executor
	state *provider.ResilienceState
}

// NewRunner creates a Runner over Run. An empty config makes it equivalent
// to Run.
func NewRunner(cfg provider.ResilienceConfig) *Runner {
	return Wrap(Direct, cfg)
}

// Wrap puts the resilience chain in front of next. A breaker without an
// IsFailure classifier gets IsToolFailure.
func Wrap(next Executor, cfg provider.ResilienceConfig) *Runner {
	if next == nil {
		next = Direct
	}
	if cfg.CircuitBreaker != nil && cfg.CircuitBreaker.IsFailure == nil {
		cb := *cfg.CircuitBreaker
		cb.IsFailure = IsToolFailure
		cfg.CircuitBreaker = &cb
	}
	return &Runner{next: next, state: provider.BuildResilience(cfg)}
}

// Run executes cmd through the resilience chain.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r == nil {
		return Run(ctx, cmd)
	}
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		return r.next.Run(ctx, cmd)
	})
}
