package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/vango-dev/reactor/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// Addr is the listen address written to reactor.yaml.
	Addr string

	// WithPage adds an HTML page kept in sync with the store.
	WithPage bool
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents. A file whose
	// content renders empty is skipped.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"counter": counterTemplate(),
	"cart":    cartTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("X002").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: cart, counter")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Paths returns the files the template writes, sorted.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Create writes the template into dir and returns the files written.
func (t *Template) Create(dir string, cfg Config) ([]string, error) {
	var written []string
	for _, relPath := range t.Paths() {
		tmpl, err := template.New(relPath).Parse(t.Files[relPath])
		if err != nil {
			return written, errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return written, errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}
		if len(bytes.TrimSpace(buf.Bytes())) == 0 {
			continue
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: project files are meant to be readable
			return written, err
		}
		written = append(written, relPath)
	}
	return written, nil
}

const configFile = `# {{.ProjectName}}
script: main.star
watch: true

server:
  addr: "{{.Addr}}"

log:
  level: info
  format: text

metrics:
  enabled: true
{{- if .WithPage}}

view:
  page: index.html
{{- end}}
`

func counterTemplate() *Template {
	return &Template{
		Name:        "counter",
		Description: "One counter with a derived value and two actions",
		Files: map[string]string{
			"reactor.yaml": configFile,
			"main.star": `# {{.ProjectName}}: a counter and its double.

state = {"count": 0}

def _double():
    return get("count") * 2

computed("double", _double)

def increment(by = 1):
    set("count", get("count") + by)
    return get("count")

def clear():
    reset()
`,
			"index.html": `{{if .WithPage}}<!DOCTYPE html>
<html>
<head><title>{{.ProjectName}}</title></head>
<body>
  <p>Count: <span data-reactive="count">0</span></p>
  <p>Double: <span data-reactive="double">0</span></p>
</body>
</html>
{{end}}`,
		},
	}
}

func cartTemplate() *Template {
	return &Template{
		Name:        "cart",
		Description: "Shopping cart with subtotal, tax and total",
		Files: map[string]string{
			"reactor.yaml": configFile,
			"main.star": `# {{.ProjectName}}: a shopping cart with derived totals.

state = {
    "cart": [],
    "taxRate": 0.08,
}

def _count():
    return len(get("cart"))

def _subtotal():
    total = 0.0
    for item in get("cart"):
        total += item["price"] * item["qty"]
    return total

def _tax():
    return get("cartSubtotal") * get("taxRate")

def _total():
    return get("cartSubtotal") + get("cartTax")

computed("cartCount", _count)
computed("cartSubtotal", _subtotal)
computed("cartTax", _tax)
computed("cartTotal", _total)

bind("cartTotal", "#total")

def add_item(name, price, qty = 1):
    items = list(get("cart"))
    items.append({"name": name, "price": price, "qty": qty})
    set("cart", items)
    return len(items)

def set_rate(rate):
    update({"taxRate": rate})

def clear():
    reset()
`,
			"index.html": `{{if .WithPage}}<!DOCTYPE html>
<html>
<head><title>{{.ProjectName}}</title></head>
<body>
  <h1>{{.ProjectName}}</h1>
  <p>Items: <span data-reactive="cartCount">0</span></p>
  <p>Subtotal: <span data-reactive="cartSubtotal">0.00</span></p>
  <p>Tax: <span data-reactive="cartTax">0.00</span></p>
  <p>Total: <strong data-reactive="cartTotal">0.00</strong></p>
  <p>Exact total: <span id="total"></span></p>
</body>
</html>
{{end}}`,
		},
	}
}
