package reactive

import "fmt"

// tracker records which keys the active computation reads.
//
// It has exactly one active slot: beginning a second computation while one
// is active is rejected instead of stacking, so a recipe can never cause
// another recipe to run inside it.
type tracker struct {
	// active is the computed property being evaluated, "" when idle.
	active string

	// deps are the keys read so far, in first-read order.
	deps []string
	seen map[string]struct{}

	// muted > 0 suspends recording without freeing the slot.
	muted int
}

// begin marks name as the active computation and starts an empty
// dependency set for it.
func (t *tracker) begin(name string) error {
	if t.active != "" {
		return nestedError(name, t.active)
	}
	t.active = name
	t.deps = nil
	t.seen = make(map[string]struct{})
	return nil
}

// record adds key to the active computation's dependencies.
// Reads made while no computation is active are not recorded.
func (t *tracker) record(key string) {
	if t.active == "" || t.muted > 0 {
		return
	}
	if _, ok := t.seen[key]; ok {
		return
	}
	t.seen[key] = struct{}{}
	t.deps = append(t.deps, key)
}

// end closes the active computation and returns the keys it read.
func (t *tracker) end() []string {
	deps := t.deps
	t.active = ""
	t.deps = nil
	t.seen = nil
	return deps
}

// current returns the active computation, if any.
func (t *tracker) current() (string, bool) {
	return t.active, t.active != ""
}

func nestedError(name, active string) error {
	return fmt.Errorf("%w: %q evaluated while %q is active", ErrNestedComputation, name, active)
}
