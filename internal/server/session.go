package server

import (
	"context"
	"slices"
	"sync"

	"github.com/vango-dev/reactor/pkg/instrument"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

// Session owns the store a server exposes. A store is single-threaded, so
// every access goes through Do.
type Session struct {
	mu      sync.Mutex
	store   *script.Store
	sink    reactive.ViewSink
	options []reactive.Option

	// tracing, when set, parents cascade spans on the request being served.
	tracing *instrument.Tracing
}

// NewSession builds a store from prog with opts applied. Every store the
// session builds renders to sink once it has been built.
func NewSession(prog *script.Program, sink reactive.ViewSink, tracing *instrument.Tracing, opts ...reactive.Option) (*Session, error) {
	s := &Session{sink: sink, options: opts, tracing: tracing}
	if err := s.Load(prog); err != nil {
		return nil, err
	}
	return s, nil
}

// Do runs fn with the store locked. Cascades started by fn are traced as
// children of ctx.
func (s *Session) Do(ctx context.Context, fn func(*script.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracing != nil {
		s.tracing.SetParent(ctx)
		defer s.tracing.SetParent(context.Background())
	}
	return fn(s.store)
}

// Load replaces the store with a fresh one built from prog and pushes its
// values to every sink that already displays them. The old store is kept
// if prog fails to build, and the sinks see nothing of the failed build.
func (s *Session) Load(prog *script.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sink := gate(s.sink)
	opts := append(slices.Clone(s.options), reactive.WithSink(sink))
	store, err := prog.NewStore(opts...)
	if err != nil {
		return err
	}
	sink.open()
	store.AutoBind()
	s.store = store
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// gatedSink drops updates until open is called. A store is built behind
// one so its initial cascades reach the sink only if the build succeeds.
type gatedSink struct {
	sink   reactive.ViewSink
	opened bool
}

func (g *gatedSink) UpdateView(u reactive.ViewUpdate) {
	if g.opened && g.sink != nil {
		g.sink.UpdateView(u)
	}
}

func (g *gatedSink) open() { g.opened = true }

// keyedGate keeps the wrapped sink's KeySource visible to AutoBind.
type keyedGate struct {
	*gatedSink
	src reactive.KeySource
}

func (g keyedGate) ReactiveKeys() []string { return g.src.ReactiveKeys() }

type gatedViewSink interface {
	reactive.ViewSink
	open()
}

func gate(sink reactive.ViewSink) gatedViewSink {
	g := &gatedSink{sink: sink}
	if src, ok := sink.(reactive.KeySource); ok {
		return keyedGate{gatedSink: g, src: src}
	}
	return g
}
