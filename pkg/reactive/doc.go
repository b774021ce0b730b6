// Package reactive provides the dependency-tracking store at the core of
// Reactor.
//
// A Store holds named properties. Reading a property while a computed
// property is being evaluated records it as a dependency of that computed
// property; writing a property to a different value fires its watchers,
// pushes the new value to the view sink and recomputes every computed
// property that read it. Recomputed values that changed are written back
// through the same path, so a single write resolves the whole cascade
// before it returns.
//
// # Core Operations
//
//	store := reactive.New(map[string]any{"count": 0})
//
//	store.Computed("doubleCount", func(s *reactive.Store) any {
//	    n, _ := s.Get("count").(int)
//	    return n * 2
//	})
//
//	stop := store.Watch("count", func(newValue, oldValue any) {
//	    fmt.Println("count:", oldValue, "->", newValue)
//	})
//	defer stop()
//
//	store.Set("count", 5) // prints "count: 0 -> 5", doubleCount becomes 10
//
// # Change Detection
//
// Writes are gated on strict equality: comparable values compare with ==,
// slices by backing array and length, maps and pointers by identity.
// Mutating a stored slice or map in place is invisible to the store;
// callers must store a new container to be observed. The exception is an
// empty slice: writing a fresh empty slice over another non-nil empty
// slice is not a change, and no watcher fires.
//
// # Typed Keys
//
// Key[T] gives a typed view over a string key:
//
//	var count = reactive.Key[int]("count")
//	count.Set(store, count.Get(store)+1)
//
// # Concurrency
//
// A Store is single-threaded. Every write, including all recomputation,
// watcher callbacks and view updates it causes, completes before Set
// returns. Callers sharing a store across goroutines must serialize access
// themselves.
package reactive
