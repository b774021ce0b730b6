package reactive

import "slices"

// WatchFunc is called with the new and previous value of a property after
// an effective write.
type WatchFunc func(newValue, oldValue any)

// Disposer removes a registration. Calling it more than once is a no-op.
type Disposer func()

type watcher struct {
	id      uint64
	fn      WatchFunc
	removed bool
}

// Watch registers fn to run after every effective write to key.
// Watchers of one key run in registration order. A watcher always sees a
// value before any computed property derived from it is recomputed.
//
// The returned Disposer removes exactly this registration, even if the same
// function was registered several times.
func (s *Store) Watch(key string, fn WatchFunc) Disposer {
	if fn == nil {
		return func() {}
	}
	s.nextWatcherID++
	w := &watcher{id: s.nextWatcherID, fn: fn}
	s.watchers[key] = append(s.watchers[key], w)

	return func() {
		if w.removed {
			return
		}
		w.removed = true
		list := s.watchers[key]
		if i := slices.Index(list, w); i >= 0 {
			s.watchers[key] = slices.Delete(slices.Clone(list), i, i+1)
		}
	}
}

// WatcherCount returns the number of watchers registered for key.
func (s *Store) WatcherCount(key string) int {
	return len(s.watchers[key])
}

// notifyWatchers calls the watchers of key registered at the time of the
// write. A watcher disposed by an earlier callback of the same write is
// skipped.
func (s *Store) notifyWatchers(key string, value, old any) {
	list := s.watchers[key]
	for _, w := range list {
		if w.removed {
			continue
		}
		if s.cascade != nil {
			s.cascade.Watchers++
		}
		w.fn(value, old)
	}
}

// Bind adds selector as a render target for key. Bindings are permanent for
// the store's lifetime and are passed to the view sink with every update of
// key. Binding the same selector twice renders it twice.
func (s *Store) Bind(key, selector string) {
	s.bindings[key] = append(s.bindings[key], selector)
}

// Bindings returns the selectors bound to key.
func (s *Store) Bindings(key string) []string {
	return slices.Clone(s.bindings[key])
}

// AutoBind pushes the current value of every key the view sink already
// displays, without registering anything. Keys come from the sink's
// KeySource if it has one, and otherwise from the keys with bindings.
// Absent keys are skipped. AutoBind only reads state, so running it again
// repeats the same updates.
func (s *Store) AutoBind() {
	var keys []string
	if src, ok := s.sink.(KeySource); ok {
		keys = src.ReactiveKeys()
	} else {
		for _, key := range s.keys {
			if len(s.bindings[key]) > 0 {
				keys = append(keys, key)
			}
		}
	}

	for _, key := range keys {
		value, ok := s.values[key]
		if !ok {
			continue
		}
		s.sink.UpdateView(ViewUpdate{
			Key:       key,
			Value:     value,
			Selectors: slices.Clone(s.bindings[key]),
		})
	}
}
