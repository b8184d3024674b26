// Package tracing records service constructions as OpenTelemetry spans.
// Nested resolutions become child spans of the factory that triggered them.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/junioryono/stratum"
)

const tracerName = "github.com/junioryono/stratum/tracing"

// Attribute keys set on construction spans.
const (
	AttrKey      = attribute.Key("stratum.key")
	AttrLifetime = attribute.Key("stratum.lifetime")
	AttrTaskID   = attribute.Key("stratum.task_id")
)

// Observer is a stratum.Observer that opens one span per factory invocation.
type Observer struct {
	tracer trace.Tracer
}

var _ stratum.Observer = (*Observer)(nil)

// Option configures an Observer.
type Option func(*config)

type config struct {
	provider trace.TracerProvider
}

// WithTracerProvider sets the provider spans are created with. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.provider = tp
	}
}

// New creates an Observer.
func New(opts ...Option) *Observer {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}

	return &Observer{tracer: cfg.provider.Tracer(tracerName)}
}

// ObserveBuild implements stratum.Observer.
func (o *Observer) ObserveBuild(ctx context.Context, key stratum.Key, lifetime stratum.Lifetime) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		AttrKey.String(key.String()),
		AttrLifetime.String(lifetime.String()),
	}
	if id, ok := stratum.TaskScopeID(ctx); ok {
		attrs = append(attrs, AttrTaskID.String(id.String()))
	}

	ctx, span := o.tracer.Start(ctx, "stratum.construct "+key.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
