package reactive

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// recordingSink collects view updates in order.
type recordingSink struct {
	updates []ViewUpdate
	keys    []string
}

func (r *recordingSink) UpdateView(u ViewUpdate) {
	r.updates = append(r.updates, u)
}

func (r *recordingSink) keysSeen() []string {
	out := make([]string, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.Key)
	}
	return out
}

func (r *recordingSink) count(key string) int {
	n := 0
	for _, u := range r.updates {
		if u.Key == key {
			n++
		}
	}
	return n
}

// keyedSink also reports which keys it displays.
type keyedSink struct {
	recordingSink
}

func (k *keyedSink) ReactiveKeys() []string { return k.keys }

func intOf(v any) int {
	n, _ := v.(int)
	return n
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}

func TestNewSeedsWithoutNotifying(t *testing.T) {
	sink := &recordingSink{}
	s := New(map[string]any{"b": 2, "a": 1}, WithSink(sink))

	if got := s.Get("a"); got != 1 {
		t.Errorf("Get(a) = %v, want 1", got)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	if len(sink.updates) != 0 {
		t.Errorf("seeding sent %d view updates", len(sink.updates))
	}
}

func TestNewSkipsReservedInitialKeys(t *testing.T) {
	s := New(map[string]any{"watch": 1, "count": 0})
	if s.Has("watch") {
		t.Error("reserved key should not be seeded")
	}
	if !s.Has("count") {
		t.Error("count should be seeded")
	}
}

func TestSetCreatesKeyOnFirstWrite(t *testing.T) {
	s := New(map[string]any{"a": 1})
	if err := s.Set("z", "new"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"a", "z"}) {
		t.Errorf("Keys() = %v, want [a z]", got)
	}
}

func TestPlainWriteFiresWatchersInOrder(t *testing.T) {
	sink := &recordingSink{}
	s := New(map[string]any{"count": 0}, WithSink(sink))

	var calls []string
	s.Watch("count", func(n, o any) { calls = append(calls, fmt.Sprintf("first %v->%v", o, n)) })
	s.Watch("count", func(n, o any) { calls = append(calls, fmt.Sprintf("second %v->%v", o, n)) })
	s.Watch("other", func(n, o any) { calls = append(calls, "other") })

	if err := s.Set("count", 5); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	want := []string{"first 0->5", "second 0->5"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("watchers = %v, want %v", calls, want)
	}
	if got := sink.keysSeen(); !reflect.DeepEqual(got, []string{"count"}) {
		t.Errorf("view updates = %v, want [count]", got)
	}
}

func TestEqualWriteIsSilent(t *testing.T) {
	sink := &recordingSink{}
	s := New(map[string]any{"count": 3}, WithSink(sink))

	fired := 0
	s.Watch("count", func(n, o any) { fired++ })

	if err := s.Set("count", 3); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if fired != 0 {
		t.Errorf("watcher fired %d times for equal write", fired)
	}
	if len(sink.updates) != 0 {
		t.Errorf("view updated %d times for equal write", len(sink.updates))
	}
}

func TestNilWriteToAbsentKeyIsSilent(t *testing.T) {
	s := New(nil)
	fired := false
	s.Watch("ghost", func(n, o any) { fired = true })

	if err := s.Set("ghost", nil); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if fired {
		t.Error("watcher fired for nil -> nil")
	}
	if !s.Has("ghost") {
		t.Error("key should still be stored")
	}
}

func TestReservedKeyWriteIsRejected(t *testing.T) {
	for _, key := range ReservedKeys() {
		t.Run(key, func(t *testing.T) {
			sink := &recordingSink{}
			s := New(nil, WithSink(sink))

			err := s.Set(key, 1)
			if !errors.Is(err, ErrReservedKey) {
				t.Fatalf("Set(%q) error = %v, want ErrReservedKey", key, err)
			}
			if s.Has(key) {
				t.Errorf("reserved key %q was stored", key)
			}
			if len(sink.updates) != 0 {
				t.Errorf("rejected write reached the view")
			}
		})
	}
}

func TestEmptyKeyIsInvalid(t *testing.T) {
	s := New(nil)
	if err := s.Set("", 1); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestLookup(t *testing.T) {
	s := New(map[string]any{"present": nil})

	if v, err := s.Lookup("present"); err != nil || v != nil {
		t.Errorf("Lookup(present) = %v, %v; want nil, nil", v, err)
	}
	if _, err := s.Lookup("missing"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Lookup(missing) error = %v, want ErrUnknownProperty", err)
	}
	if _, err := s.Lookup("reset"); !errors.Is(err, ErrReservedKey) {
		t.Errorf("Lookup(reset) error = %v, want ErrReservedKey", err)
	}
	if got := s.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(map[string]any{"a": 1})
	snap := s.Snapshot()
	snap["a"] = 2
	if s.Peek("a") != 1 {
		t.Error("mutating the snapshot changed the store")
	}
}

func TestInPlaceMutationIsInvisible(t *testing.T) {
	items := []int{1, 2}
	s := New(map[string]any{"items": items})

	fired := 0
	s.Watch("items", func(n, o any) { fired++ })

	items[0] = 99
	if err := s.Set("items", items); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if fired != 0 {
		t.Error("re-setting the same slice should not be seen as a change")
	}

	if err := s.Set("items", append([]int(nil), items...)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if fired != 1 {
		t.Errorf("new slice fired %d watchers, want 1", fired)
	}
}

func TestWithEqualsOverridesGate(t *testing.T) {
	type pair struct {
		Tags []string
	}
	s := New(map[string]any{"p": pair{Tags: []string{"x"}}}, WithEquals(func(a, b any) bool {
		return reflect.DeepEqual(a, b)
	}))

	fired := 0
	s.Watch("p", func(n, o any) { fired++ })

	_ = s.Set("p", pair{Tags: []string{"x"}})
	if fired != 0 {
		t.Errorf("deep-equal value fired %d watchers", fired)
	}
	_ = s.Set("p", pair{Tags: []string{"y"}})
	if fired != 1 {
		t.Errorf("changed value fired %d watchers, want 1", fired)
	}
}
