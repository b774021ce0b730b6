package reactive

import "errors"

// ErrReservedKey is returned when a write targets a name reserved for a
// store operation (computed, watch, bind, autoBind, get, set, update,
// reset). The write is ignored and the store is unchanged.
var ErrReservedKey = errors.New("reactive: key is reserved for a store operation")

// ErrInvalidKey is returned for an empty property name.
var ErrInvalidKey = errors.New("reactive: invalid key")

// ErrUnknownProperty is returned by Lookup when a key is not stored.
var ErrUnknownProperty = errors.New("reactive: unknown property")

// ErrNilRecipe is returned when a computed property is defined without a
// recipe.
var ErrNilRecipe = errors.New("reactive: computed property has no recipe")

// ErrCyclicDependency is returned when propagation would re-evaluate a
// computed property that is already being evaluated further up the same
// cascade. The wrapped message carries the chain, for example
// "a -> b -> a".
//
// Values written before the cycle was detected stay written.
var ErrCyclicDependency = errors.New("reactive: cyclic dependency")

// ErrNestedComputation is returned when a computed property would be
// evaluated, or defined, while another computation is being tracked.
// This happens when a recipe writes to the store and the write needs to
// recompute something, or when a recipe calls Computed.
var ErrNestedComputation = errors.New("reactive: nested computation")

// isFatal reports whether err aborts a multi-key operation such as Update
// or Reset. Key validation errors only skip the offending key.
func isFatal(err error) bool {
	return errors.Is(err, ErrCyclicDependency) || errors.Is(err, ErrNestedComputation)
}
