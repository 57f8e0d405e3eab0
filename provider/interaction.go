package provider

import "context"

// RequestResponse is a provider that maps one input to one output:
// an HTTP call, a subprocess run, a single analysis pass.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Func adapts a function to RequestResponse. Availability is always true.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Name() string                                 { return f.name }
func (f *funcRR[I, O]) IsAvailable(context.Context) bool             { return true }
func (f *funcRR[I, O]) Execute(ctx context.Context, in I) (O, error) { return f.fn(ctx, in) }
