package instrument

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/reactor/pkg/reactive"
)

type recordedSpan struct {
	parent  context.Context
	name    string
	started time.Time
	attrs   map[attribute.Key]attribute.Value
	status  codes.Code
	errors  int
	ended   bool
}

type recordingProvider struct {
	noop.TracerProvider
	tracerName string
	spans      []*recordedSpan
}

func (p *recordingProvider) Tracer(name string, _ ...trace.TracerOption) trace.Tracer {
	p.tracerName = name
	return &recordingTracer{provider: p}
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	rec := &recordedSpan{
		parent:  ctx,
		name:    name,
		started: cfg.Timestamp(),
		attrs:   make(map[attribute.Key]attribute.Value),
	}
	for _, kv := range cfg.Attributes() {
		rec.attrs[kv.Key] = kv.Value
	}
	t.provider.spans = append(t.provider.spans, rec)
	return ctx, &recordingSpan{rec: rec}
}

type recordingSpan struct {
	noop.Span
	rec *recordedSpan
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.rec.status = code }

func (s *recordingSpan) RecordError(error, ...trace.EventOption) { s.rec.errors++ }

func (s *recordingSpan) End(...trace.SpanEndOption) { s.rec.ended = true }

func TestTracingRecordsCascadeSpan(t *testing.T) {
	tp := &recordingProvider{}
	tr := NewTracing(WithTracerProvider(tp), WithTracerName("test"))
	s := reactive.New(map[string]any{"count": 1}, reactive.WithHooks(tr))
	require.NoError(t, s.Computed("double", func(s *reactive.Store) any {
		return s.Get("count").(int) * 2
	}))
	tp.spans = nil

	before := time.Now()
	require.NoError(t, s.Set("count", 2))

	assert.Equal(t, "test", tp.tracerName)
	require.Len(t, tp.spans, 1)
	span := tp.spans[0]
	assert.Equal(t, CascadeSpanName, span.name)
	assert.False(t, span.started.Before(before), "span should start at the opening write")
	assert.Equal(t, "count", span.attrs["reactive.key"].AsString())
	assert.Equal(t, int64(2), span.attrs["reactive.writes"].AsInt64())
	assert.Equal(t, int64(1), span.attrs["reactive.recomputes"].AsInt64())
	assert.Equal(t, int64(2), span.attrs["reactive.max_depth"].AsInt64())
	assert.Equal(t, codes.Ok, span.status)
	assert.True(t, span.ended)
}

func TestTracingMarksFailedCascades(t *testing.T) {
	tp := &recordingProvider{}
	s := reactive.New(map[string]any{"seed": 1}, reactive.WithHooks(NewTracing(WithTracerProvider(tp))))

	require.NoError(t, s.Computed("a", func(s *reactive.Store) any {
		b, _ := s.Get("b").(int)
		return b + s.Get("seed").(int)
	}))
	require.ErrorIs(t, s.Computed("b", func(s *reactive.Store) any {
		return s.Get("a").(int) + 1
	}), reactive.ErrCyclicDependency)
	tp.spans = nil

	err := s.Set("seed", 5)
	require.ErrorIs(t, err, reactive.ErrCyclicDependency)

	require.Len(t, tp.spans, 1)
	assert.Equal(t, codes.Error, tp.spans[0].status)
	assert.Equal(t, 1, tp.spans[0].errors)
	assert.True(t, tp.spans[0].ended)
}

func TestTracingDefaults(t *testing.T) {
	tr := NewTracing()
	assert.NotNil(t, tr.tracer)
	assert.NotPanics(t, func() {
		tr.CascadeFinished(reactive.CascadeStats{Key: "k", Started: time.Now(), Writes: 1}, nil)
	})
}

type requestKey struct{}

func TestTracingSetParent(t *testing.T) {
	tp := &recordingProvider{}
	tr := NewTracing(WithTracerProvider(tp))
	s := reactive.New(map[string]any{"count": 1}, reactive.WithHooks(tr))

	require.NoError(t, s.Set("count", 2))
	require.Len(t, tp.spans, 1)
	assert.Nil(t, tp.spans[0].parent.Value(requestKey{}))

	tr.SetParent(context.WithValue(context.Background(), requestKey{}, "req-1"))
	require.NoError(t, s.Set("count", 3))
	require.Len(t, tp.spans, 2)
	assert.Equal(t, "req-1", tp.spans[1].parent.Value(requestKey{}))

	tr.SetParent(nil) //nolint:staticcheck // nil resets to the background context
	require.NoError(t, s.Set("count", 4))
	assert.Nil(t, tp.spans[2].parent.Value(requestKey{}))
}
