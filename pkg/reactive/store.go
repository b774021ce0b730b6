package reactive

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Store is a reactive property store.
//
// The zero value is not usable; create stores with New. Each store owns its
// own properties, computed properties, watchers and bindings, and nothing is
// shared between stores.
type Store struct {
	values map[string]any

	// keys holds stored keys in insertion order.
	keys []string

	tracker      tracker
	computations registry
	watchers     map[string][]*watcher
	bindings     map[string][]string

	// chain is the stack of computed properties currently being evaluated
	// by propagation, outermost first.
	chain []string

	// depth counts nested writes; the outermost write opens the cascade.
	depth   int
	cascade *CascadeStats

	nextWatcherID uint64

	sink   ViewSink
	hooks  Hooks
	equal  func(a, b any) bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSink sets the view sink that receives every effective write.
func WithSink(sink ViewSink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithHooks installs observability hooks. Use ChainHooks to install more
// than one.
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		s.hooks = h
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "reactive")
		}
	}
}

// WithEquals replaces the strict equality used to gate writes.
// This is useful when values are structs holding slices, which strict
// equality always reports as changed.
func WithEquals(fn func(a, b any) bool) Option {
	return func(s *Store) {
		if fn != nil {
			s.equal = fn
		}
	}
}

// New creates a store seeded with initial. The initial keys are recorded in
// sorted order; keys created later are appended in first-write order.
// Seeding fires no watchers and does not touch the view sink.
func New(initial map[string]any, opts ...Option) *Store {
	s := &Store{
		values:       make(map[string]any, len(initial)),
		computations: newRegistry(),
		watchers:     make(map[string][]*watcher),
		bindings:     make(map[string][]string),
		sink:         nopSink{},
		equal:        StrictEqual,
		logger:       slog.Default().With("component", "reactive"),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, key := range slices.Sorted(maps.Keys(initial)) {
		if err := checkKey(key); err != nil {
			s.logger.Warn("initial key skipped", "key", key, "error", err)
			continue
		}
		s.put(key, initial[key])
	}
	return s
}

// Get returns the value stored under key, or nil if key is absent.
// When called from a recipe, key becomes a dependency of the computed
// property being evaluated, whether or not it is present.
func (s *Store) Get(key string) any {
	s.tracker.record(key)
	return s.values[key]
}

// Lookup is like Get but distinguishes absent keys: it returns
// ErrUnknownProperty for keys that are not stored and ErrReservedKey for
// operation names. The read is tracked either way.
func (s *Store) Lookup(key string) (any, error) {
	s.tracker.record(key)
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if isReserved(key) {
		return nil, fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, key)
}

// Peek returns the value stored under key without recording a dependency.
func (s *Store) Peek(key string) any {
	return s.values[key]
}

// Has reports whether key is stored. It does not record a dependency.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the stored keys in insertion order.
func (s *Store) Keys() []string {
	return slices.Clone(s.keys)
}

// Snapshot returns a shallow copy of all stored values.
func (s *Store) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// Untracked runs fn without recording dependencies for the active
// computation.
//
// Example:
//
//	store.Computed("label", func(s *reactive.Store) any {
//	    var unit any
//	    s.Untracked(func() { unit = s.Get("unit") }) // not a dependency
//	    return fmt.Sprint(s.Get("amount"), unit)
//	})
func (s *Store) Untracked(fn func()) {
	s.tracker.muted++
	defer func() { s.tracker.muted-- }()
	fn()
}

// Set writes value under key.
//
// If value is strictly equal to the current value the write only stores it.
// Otherwise, in order: every watcher of key is called with (value, old), the
// view sink receives the update, and every computed property that read key
// is recomputed; changed results are written back the same way, depth-first.
//
// Set returns ErrReservedKey or ErrInvalidKey without touching the store,
// and ErrCyclicDependency or ErrNestedComputation if propagation had to
// stop. Writing to a computed property is allowed; the value is replaced
// again the next time one of its dependencies changes.
func (s *Store) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return s.reject(key, err)
	}
	return s.fail(key, s.write(key, value))
}

// write is the single write path shared by Set, Computed and propagation.
func (s *Store) write(key string, value any) (err error) {
	old := s.values[key]
	s.put(key, value)
	if s.equal(old, value) {
		return nil
	}

	if s.depth == 0 {
		s.openCascade(key)
		defer func() { s.closeCascade(err) }()
	}
	s.depth++
	defer func() { s.depth-- }()

	s.cascade.Writes++
	s.cascade.MaxDepth = max(s.cascade.MaxDepth, s.depth)
	_, computed := s.computations.get(key)
	if s.hooks != nil {
		s.hooks.WriteApplied(key, computed)
	}

	s.notifyWatchers(key, value, old)
	s.sink.UpdateView(ViewUpdate{
		Key:       key,
		Value:     value,
		Selectors: slices.Clone(s.bindings[key]),
	})
	return s.propagate(key)
}

// propagate recomputes every computed property that depends on key.
// Dependents are visited in registration order; membership is checked at
// visit time because an earlier recompute may have changed later ones.
func (s *Store) propagate(key string) error {
	for _, c := range s.computations.all() {
		if !c.dependsOn(key) {
			continue
		}
		if err := s.recomputeInChain(c); err != nil {
			return err
		}
	}
	return nil
}

// recomputeInChain recomputes c with its name on the evaluation chain. The
// name is popped even if a recipe, watcher or sink panics.
func (s *Store) recomputeInChain(c *computation) error {
	if err := s.checkChain(c.name); err != nil {
		return err
	}
	s.chain = append(s.chain, c.name)
	defer func() { s.chain = s.chain[:len(s.chain)-1] }()
	return s.recompute(c)
}

// checkChain fails if name is already being evaluated further up.
func (s *Store) checkChain(name string) error {
	if !slices.Contains(s.chain, name) {
		return nil
	}
	path := append(slices.Clone(s.chain), name)
	return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(path, " -> "))
}

func (s *Store) openCascade(key string) {
	s.cascade = &CascadeStats{Key: key, Started: time.Now()}
}

func (s *Store) closeCascade(err error) {
	stats := *s.cascade
	s.cascade = nil
	if s.hooks != nil {
		s.hooks.CascadeFinished(stats, err)
	}
}

// put stores value under key, recording the key's position on first write.
func (s *Store) put(key string, value any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// remove deletes key silently: no watcher fires and the view is untouched.
func (s *Store) remove(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	if i := slices.Index(s.keys, key); i >= 0 {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
}

// reject logs and reports a write that was refused before touching state.
func (s *Store) reject(key string, err error) error {
	s.logger.Warn("write rejected", "key", key, "error", err)
	if s.hooks != nil {
		s.hooks.WriteRejected(key, err)
	}
	return err
}

// fail logs a propagation failure once, at the outermost write.
func (s *Store) fail(key string, err error) error {
	if err != nil && s.depth == 0 && isFatal(err) {
		s.logger.Error("propagation stopped", "key", key, "error", err)
	}
	return err
}
