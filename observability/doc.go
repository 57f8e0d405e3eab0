// Package observability wires OpenTelemetry tracing and metrics.
//
//	tp, err := observability.InitTracer(ctx, cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "speaker.detect")
//	defer span.End()
//
// When tracing is disabled the global no-op providers stay in place, so
// StartSpan and the Metrics instruments are always safe to call.
package observability
