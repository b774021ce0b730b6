// Package errors turns reactor failures into actionable diagnostics.
//
// Store, script and config errors are classified into registered codes,
// each with a plain explanation and, where one helps, a hint and an
// example. Errors raised by a script carry the file position they came
// from, shown with the surrounding source lines.
//
// # Error Codes
//
//   - R001-R099: store errors (reserved keys, cycles, nested computation)
//   - S001-S099: script errors (syntax, load failures, unknown actions)
//   - C001-C099: configuration errors
//   - X001-X099: anything else a command reports
//
// # Usage
//
//	if err := run(); err != nil {
//		errors.PrintError(os.Stderr, err)
//		os.Exit(1)
//	}
//
// prints, for a recipe that wrote to the store:
//
//	ERROR R005: Nested computation
//
//	  reactive: nested computation: "cartTotal" evaluated while "cartTax" is active
//
//	  cart.star:19:8
//
//	      17 │
//	      18 │ def _tax():
//	  →   19 │     set("taxRate", 0.1)
//	         │        ^
//	      20 │     return get("cartSubtotal") * get("taxRate")
//
//	  A recipe wrote to the store while it was being evaluated.
//
//	  Hint: Recipes must only read. Move the write into a watcher or an action.
package errors
