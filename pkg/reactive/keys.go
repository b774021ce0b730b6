package reactive

// Key is a property name bound to a value type.
//
// Key gives typed access to a store without changing how values are kept:
// the store still holds any, and a value of another dynamic type reads as
// the zero value of T.
//
//	var (
//	    count   = reactive.Key[int]("count")
//	    doubled = reactive.Key[int]("doubleCount")
//	)
//
//	reactive.DefineComputed(store, doubled, func(s *reactive.Store) int {
//	    return count.Get(s) * 2
//	})
//	count.Set(store, 5)
type Key[T any] string

// Name returns the key as a string.
func (k Key[T]) Name() string {
	return string(k)
}

// Get returns the value under k, tracked like Store.Get.
func (k Key[T]) Get(s *Store) T {
	v, _ := s.Get(string(k)).(T)
	return v
}

// Peek returns the value under k without recording a dependency.
func (k Key[T]) Peek(s *Store) T {
	v, _ := s.Peek(string(k)).(T)
	return v
}

// Lookup returns the value under k, or an error if it is absent.
func (k Key[T]) Lookup(s *Store) (T, error) {
	var zero T
	v, err := s.Lookup(string(k))
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Set writes v under k.
func (k Key[T]) Set(s *Store, v T) error {
	return s.Set(string(k), v)
}

// Update writes fn applied to the current value.
func (k Key[T]) Update(s *Store, fn func(T) T) error {
	return k.Set(s, fn(k.Peek(s)))
}

// Watch registers a typed watcher on k.
func (k Key[T]) Watch(s *Store, fn func(newValue, oldValue T)) Disposer {
	return s.Watch(string(k), func(newValue, oldValue any) {
		n, _ := newValue.(T)
		o, _ := oldValue.(T)
		fn(n, o)
	})
}

// Bind adds a render target for k.
func (k Key[T]) Bind(s *Store, selector string) {
	s.Bind(string(k), selector)
}

// DefineComputed registers a typed computed property.
func DefineComputed[T any](s *Store, k Key[T], fn func(s *Store) T) error {
	if fn == nil {
		return ErrNilRecipe
	}
	return s.Computed(string(k), func(s *Store) any { return fn(s) })
}
