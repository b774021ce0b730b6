package reactive

import "time"

// CascadeStats summarizes one propagation cascade: everything that
// happened between an outermost effective write and its return.
type CascadeStats struct {
	// Key is the key whose write opened the cascade.
	Key string

	// Started is when the opening write was applied.
	Started time.Time

	// Writes counts effective writes, including the first one.
	Writes int

	// Recomputes counts recipe evaluations.
	Recomputes int

	// Watchers counts watcher callbacks fired.
	Watchers int

	// MaxDepth is the deepest write nesting reached. A write with no
	// dependents has depth 1.
	MaxDepth int
}

// Hooks observes store activity. Implementations must not write to the
// store.
type Hooks interface {
	// WriteApplied is called for every effective write.
	WriteApplied(key string, computed bool)

	// WriteRejected is called when a write is refused for its key.
	WriteRejected(key string, err error)

	// Recomputed is called after each recipe evaluation with whether the
	// result differs from the stored value.
	Recomputed(name string, changed bool, elapsed time.Duration)

	// CascadeFinished is called when the outermost write returns.
	CascadeFinished(stats CascadeStats, err error)
}

// ChainHooks returns Hooks that forward to each of hooks in order.
// Nil entries are skipped.
func ChainHooks(hooks ...Hooks) Hooks {
	var chain multiHooks
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}
	return chain
}

type multiHooks []Hooks

func (m multiHooks) WriteApplied(key string, computed bool) {
	for _, h := range m {
		h.WriteApplied(key, computed)
	}
}

func (m multiHooks) WriteRejected(key string, err error) {
	for _, h := range m {
		h.WriteRejected(key, err)
	}
}

func (m multiHooks) Recomputed(name string, changed bool, elapsed time.Duration) {
	for _, h := range m {
		h.Recomputed(name, changed, elapsed)
	}
}

func (m multiHooks) CascadeFinished(stats CascadeStats, err error) {
	for _, h := range m {
		h.CascadeFinished(stats, err)
	}
}
