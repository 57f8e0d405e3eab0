package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/captionkit/logger"
)

// InitMeter installs a periodic OTLP HTTP meter provider as the global one.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(cfg)),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the service.
type Metrics struct {
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestActive     metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
	fallbackTotal     metric.Int64Counter
	speakersDetected  metric.Int64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("request.total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating request.total: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("request.duration",
		metric.WithDescription("Duration of HTTP requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating request.duration: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("request.active",
		metric.WithDescription("HTTP requests in flight")); err != nil {
		return nil, fmt.Errorf("creating request.active: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("operation.total",
		metric.WithDescription("Total provider operations")); err != nil {
		return nil, fmt.Errorf("creating operation.total: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of provider operations"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating operation.duration: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating error.total: %w", err)
	}
	if m.fallbackTotal, err = meter.Int64Counter("speaker.fallback.total",
		metric.WithDescription("Degraded speaker attribution, by kind (segment or engine)")); err != nil {
		return nil, fmt.Errorf("creating speaker.fallback.total: %w", err)
	}
	if m.speakersDetected, err = meter.Int64Histogram("speaker.detected",
		metric.WithDescription("Speakers found per detection run")); err != nil {
		return nil, fmt.Errorf("creating speaker.detected: %w", err)
	}
	return m, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed one.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route string, status int, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// RecordOperation records one provider execution.
func (m *Metrics) RecordOperation(ctx context.Context, component, operation, status string, duration time.Duration) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}

// RecordFallback counts a degraded attribution: "segment" for synthetic
// features, "engine" for the single-speaker result.
func (m *Metrics) RecordFallback(ctx context.Context, kind string) {
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSpeakers records the speaker count of a detection run.
func (m *Metrics) RecordSpeakers(ctx context.Context, count int) {
	m.speakersDetected.Record(ctx, int64(count))
}
