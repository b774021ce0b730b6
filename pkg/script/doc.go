// Package script drives reactive stores from Starlark programs.
//
// A program is a .star file that declares its initial state, computed
// properties, watchers and bindings, plus actions that change the state:
//
//	state = {"count": 0}
//
//	def _double():
//	    return get("count") * 2
//
//	computed("doubleCount", _double)
//	bind("count", "#counter")
//
//	def increment(by = 1):
//	    set("count", get("count") + by)
//
// Load the program once and build as many stores as needed:
//
//	prog, err := script.LoadFile("counter.star")
//	store, err := prog.NewStore()
//	_, err = store.Call("increment", 5)
//
// Starlark integers arrive in the store as int64, floats as float64, lists
// as []any and dicts as map[string]any.
package script
