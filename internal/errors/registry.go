package errors

import "slices"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	Example    string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Store errors (R001-R099)

	"R001": {
		Category:   CategoryValidation,
		Message:    "Reserved key",
		Detail:     "The key names a store operation and cannot hold a property.",
		Suggestion: "Rename the property; computed, watch, bind, autoBind, get, set, update and reset are reserved.",
	},
	"R002": {
		Category: CategoryValidation,
		Message:  "Invalid key",
		Detail:   "Property keys must be non-empty.",
	},
	"R003": {
		Category:   CategoryStore,
		Message:    "Unknown property",
		Detail:     "The key was read before any value or computed property was defined for it.",
		Suggestion: "Give the key an initial value in state, or read it with a default.",
		Example:    `get("discount", 0)`,
	},
	"R004": {
		Category:   CategoryStore,
		Message:    "Cyclic dependency",
		Detail:     "A computed property depends on itself, directly or through other computed properties. The write was rolled back.",
		Suggestion: "Break the cycle so that one property in the chain reads only plain values.",
	},
	"R005": {
		Category:   CategoryStore,
		Message:    "Nested computation",
		Detail:     "A recipe wrote to the store while it was being evaluated.",
		Suggestion: "Recipes must only read. Move the write into a watcher or an action.",
		Example: `def _remember(new, old):
    set("lastTotal", new)

watch("cartTotal", _remember)`,
	},
	"R006": {
		Category: CategoryValidation,
		Message:  "Computed property has no recipe",
		Detail:   "computed was called without a function.",
	},

	// Script errors (S001-S099)

	"S001": {
		Category:   CategoryScript,
		Message:    "Script syntax error",
		Detail:     "The script could not be parsed, or it refers to names that are never defined.",
		Suggestion: "Scripts are Starlark: a Python dialect without classes, imports or exceptions.",
	},
	"S002": {
		Category: CategoryScript,
		Message:  "Script failed while loading",
		Detail:   "Top-level statements raised an error.",
	},
	"S003": {
		Category: CategoryScript,
		Message:  "Script not found",
		Detail:   "The script file could not be read.",
	},
	"S004": {
		Category:   CategoryScript,
		Message:    "Unknown action",
		Detail:     "Actions are the top-level functions of the script whose names do not start with an underscore.",
		Suggestion: "Run `reactor inspect` to list the actions a script defines.",
	},
	"S005": {
		Category:   CategoryScript,
		Message:    "Store used outside a store",
		Detail:     "get, set, update and reset only work inside recipes, watchers and actions.",
		Suggestion: "Put initial values in the state dict instead of calling set at top level.",
		Example:    `state = {"cart": [], "taxRate": 0.08}`,
	},
	"S006": {
		Category: CategoryScript,
		Message:  "Invalid state",
		Detail:   "The global state must be a dict whose keys are strings.",
	},
	"S007": {
		Category: CategoryScript,
		Message:  "Script error",
		Detail:   "A recipe, watcher or action raised an error. Writes made before the error are kept.",
	},

	// Config errors (C001-C099)

	"C001": {
		Category:   CategoryConfig,
		Message:    "Cannot read config file",
		Suggestion: "Check the path given to --config, or remove the file to run on defaults.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid config",
	},

	// CLI errors (X001-X099)

	"X001": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
	"X002": {
		Category:   CategoryCLI,
		Message:    "Template not found",
		Suggestion: "Run 'reactor init --help' to list the templates",
	},
	"X003": {
		Category:   CategoryCLI,
		Message:    "Directory is not empty",
		Suggestion: "Choose a new directory or pass --force to overwrite",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
