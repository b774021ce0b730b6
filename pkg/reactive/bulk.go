package reactive

import (
	"errors"
	"maps"
	"slices"
)

// Field is one key/value pair of a Patch.
type Field struct {
	Key   string
	Value any
}

// Patch is an ordered list of writes.
type Patch []Field

// PatchOf builds a Patch from m with keys in sorted order.
func PatchOf(m map[string]any) Patch {
	p := make(Patch, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		p = append(p, Field{Key: key, Value: m[key]})
	}
	return p
}

// Update applies each field of patch as an independent Set, in order.
//
// Updates are not atomic: every field runs its own complete cascade before
// the next field is written, so watchers of an early field observe the
// store with later fields still unapplied. Fields rejected for their key
// are skipped and reported together in the returned error; a cyclic or
// nested propagation failure stops the remaining fields.
func (s *Store) Update(patch Patch) error {
	var errs []error
	for _, f := range patch {
		if err := s.Set(f.Key, f.Value); err != nil {
			if isFatal(err) {
				return errors.Join(append(errs, err)...)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset restores initial.
//
// Stored keys are visited in insertion order. A key defined in initial is
// written through Set, with its full cascade; any other key is deleted
// silently, except computed properties, which are kept. Keys of initial
// that were not stored are written last, in sorted order, so every key of
// initial reads back its value afterwards unless a cascade overwrote it.
//
// Watchers, bindings and computed recipes are untouched. Computed
// properties are only re-evaluated if one of their dependencies is written.
// Errors are handled as in Update.
func (s *Store) Reset(initial map[string]any) error {
	var errs []error
	apply := func(key string, value any) bool {
		err := s.Set(key, value)
		if err != nil {
			errs = append(errs, err)
		}
		return !isFatal(err)
	}

	visited := make(map[string]struct{}, len(s.keys))
	for _, key := range slices.Clone(s.keys) {
		visited[key] = struct{}{}
		if value, ok := initial[key]; ok {
			if !apply(key, value) {
				return errors.Join(errs...)
			}
			continue
		}
		if !s.IsComputed(key) {
			s.remove(key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(initial)) {
		if _, ok := visited[key]; ok {
			continue
		}
		if !apply(key, initial[key]) {
			break
		}
	}
	return errors.Join(errs...)
}
