package reactive

import (
	"slices"
	"time"
)

// Recipe computes a derived value from the store.
// Every key read through s.Get or s.Lookup during the call becomes a
// dependency of the computed property. Recipes should be pure: writing to
// the store from a recipe is allowed, but a write that needs to recompute
// anything fails with ErrNestedComputation.
type Recipe func(s *Store) any

// computation is a registered computed property.
type computation struct {
	name   string
	recipe Recipe

	// deps is the set of keys read by the last evaluation.
	deps  map[string]struct{}
	order []string
}

// setDeps replaces the dependency set wholesale. Keys that were read by an
// earlier evaluation but not by this one are dropped.
func (c *computation) setDeps(keys []string) {
	c.order = keys
	c.deps = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		c.deps[k] = struct{}{}
	}
}

func (c *computation) dependsOn(key string) bool {
	_, ok := c.deps[key]
	return ok
}

// registry holds computed properties in registration order.
type registry struct {
	byName map[string]*computation
	names  []string
}

func newRegistry() registry {
	return registry{byName: make(map[string]*computation)}
}

// define registers recipe under name. Redefining a name replaces its recipe
// and keeps its registration position.
func (r *registry) define(name string, recipe Recipe) *computation {
	if c, ok := r.byName[name]; ok {
		c.recipe = recipe
		return c
	}
	c := &computation{name: name, recipe: recipe}
	r.byName[name] = c
	r.names = append(r.names, name)
	return c
}

func (r *registry) get(name string) (*computation, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// all returns the computations in registration order. The slice is a copy,
// so computations defined during iteration are not visited.
func (r *registry) all() []*computation {
	out := make([]*computation, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Computed registers a computed property and evaluates it once.
//
// The recipe runs immediately under dependency tracking; its result is then
// written to name through the normal write path, so watchers and bindings
// already registered for name see the initial value. Afterwards the recipe
// re-runs whenever any key it read changes.
//
// Computed properties may read other computed properties. Calling Computed
// from inside a recipe returns ErrNestedComputation.
func (s *Store) Computed(name string, recipe Recipe) error {
	if err := checkKey(name); err != nil {
		return s.reject(name, err)
	}
	if recipe == nil {
		return ErrNilRecipe
	}
	if active, ok := s.tracker.current(); ok {
		return s.fail(name, nestedError(name, active))
	}
	if err := s.checkChain(name); err != nil {
		return s.fail(name, err)
	}

	c := s.computations.define(name, recipe)

	s.chain = append(s.chain, name)
	defer func() { s.chain = s.chain[:len(s.chain)-1] }()

	start := time.Now()
	value, err := s.evaluate(c)
	if err != nil {
		return s.fail(name, err)
	}
	if s.hooks != nil {
		s.hooks.Recomputed(name, !s.equal(s.values[name], value), time.Since(start))
	}
	return s.fail(name, s.write(name, value))
}

// evaluate runs c's recipe under fresh tracking and records its
// dependencies. The tracker is released even if the recipe panics.
func (s *Store) evaluate(c *computation) (value any, err error) {
	if err := s.tracker.begin(c.name); err != nil {
		return nil, err
	}
	defer func() { c.setDeps(s.tracker.end()) }()

	if s.cascade != nil {
		s.cascade.Recomputes++
	}
	return c.recipe(s), nil
}

// recompute re-evaluates c and writes the result back if it changed.
func (s *Store) recompute(c *computation) error {
	start := time.Now()
	value, err := s.evaluate(c)
	if err != nil {
		return err
	}
	changed := !s.equal(s.values[c.name], value)
	if s.hooks != nil {
		s.hooks.Recomputed(c.name, changed, time.Since(start))
	}
	s.logger.Debug("recomputed", "name", c.name, "changed", changed)
	if !changed {
		return nil
	}
	return s.write(c.name, value)
}

// ComputedNames returns the computed property names in registration order.
func (s *Store) ComputedNames() []string {
	return slices.Clone(s.computations.names)
}

// IsComputed reports whether name is a registered computed property.
func (s *Store) IsComputed(name string) bool {
	_, ok := s.computations.get(name)
	return ok
}

// Dependencies returns the keys read by the last evaluation of the
// computed property name, in first-read order. It returns nil for
// unknown names.
func (s *Store) Dependencies(name string) []string {
	c, ok := s.computations.get(name)
	if !ok {
		return nil
	}
	return slices.Clone(c.order)
}
