package reactive

import "reflect"

// StrictEqual is the default change gate. It compares shallowly:
//   - nil equals only nil
//   - values of different dynamic types are never equal
//   - slices are equal when they share a backing array and length; empty
//     slices are equal when both are nil or both are non-nil, since they
//     have no backing array to tell apart
//   - maps, channels and pointers are equal when identical
//   - funcs are never equal
//   - other values compare with == when comparable, and are otherwise
//     treated as changed
//
// Floats follow ==, so NaN is never equal to itself.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice:
		if va.Len() == 0 && vb.Len() == 0 {
			return va.IsNil() == vb.IsNil()
		}
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Func:
		return false
	}

	// Comparable also rejects structs and arrays holding uncomparable
	// dynamic values, where == would panic.
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
