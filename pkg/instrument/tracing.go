package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// DefaultTracerName is the tracer used when none is configured.
const DefaultTracerName = "reactor"

// CascadeSpanName names the span recorded for each cascade.
const CascadeSpanName = "reactive.cascade"

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "reactor").
	TracerName string

	// Provider supplies the tracer. Defaults to the global provider.
	Provider trace.TracerProvider

	// Context is the parent of every cascade span. Defaults to
	// context.Background().
	Context context.Context
}

// TracingOption configures OpenTelemetry tracing.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithParentContext sets the context cascade spans are started from.
func WithParentContext(ctx context.Context) TracingOption {
	return func(c *TracingConfig) {
		c.Context = ctx
	}
}

// Tracing records one span per propagation cascade. It implements
// reactive.Hooks; only CascadeFinished does any work.
//
// The span starts when the opening write was applied and carries the key,
// the write, recompute and watcher counts and the maximum nesting depth.
// Cascades that stop on a cycle or nested computation are marked as
// errors.
type Tracing struct {
	tracer trace.Tracer
	ctx    context.Context
}

// NewTracing creates a Tracing hook.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: DefaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &Tracing{
		tracer: config.Provider.Tracer(config.TracerName),
		ctx:    config.Context,
	}
}

// SetParent replaces the context later cascade spans start from, so a
// server can nest cascades under the request that caused them. Like the
// store it observes, a Tracing is not safe for concurrent use.
func (t *Tracing) SetParent(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = ctx
}

// WriteApplied implements reactive.Hooks.
func (t *Tracing) WriteApplied(string, bool) {}

// WriteRejected implements reactive.Hooks.
func (t *Tracing) WriteRejected(string, error) {}

// Recomputed implements reactive.Hooks.
func (t *Tracing) Recomputed(string, bool, time.Duration) {}

// CascadeFinished implements reactive.Hooks.
func (t *Tracing) CascadeFinished(stats reactive.CascadeStats, err error) {
	_, span := t.tracer.Start(t.ctx, CascadeSpanName,
		trace.WithTimestamp(stats.Started),
		trace.WithAttributes(
			attribute.String("reactive.key", stats.Key),
			attribute.Int("reactive.writes", stats.Writes),
			attribute.Int("reactive.recomputes", stats.Recomputes),
			attribute.Int("reactive.watchers", stats.Watchers),
			attribute.Int("reactive.max_depth", stats.MaxDepth),
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Reason(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
