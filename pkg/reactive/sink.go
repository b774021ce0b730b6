package reactive

// ViewUpdate is a single render instruction sent to a ViewSink.
type ViewUpdate struct {
	// Key is the property that changed.
	Key string

	// Value is the value after the write.
	Value any

	// Selectors are the render targets bound to Key with Bind.
	Selectors []string
}

// ViewSink renders property values.
//
// UpdateView is called after every effective write, for plain and computed
// properties alike, after the key's watchers and before its dependents are
// recomputed. Implementations must not write back to the store for the same
// key.
type ViewSink interface {
	UpdateView(u ViewUpdate)
}

// KeySource is implemented by sinks that know which keys they display.
// AutoBind uses it to decide which values to push.
type KeySource interface {
	ReactiveKeys() []string
}

// ViewSinkFunc adapts a function to ViewSink.
type ViewSinkFunc func(u ViewUpdate)

// UpdateView calls f(u).
func (f ViewSinkFunc) UpdateView(u ViewUpdate) { f(u) }

type nopSink struct{}

func (nopSink) UpdateView(ViewUpdate) {}
