// Package templates provides project scaffolding templates.
//
// A template writes a starter script, a reactor.yaml and, optionally, an
// HTML page bound to the script's keys.
//
// # Available Templates
//
//   - counter: one counter with a derived value and two actions
//   - cart: shopping cart with subtotal, tax and total
//
// # Usage
//
//	tmpl, err := templates.Get("cart")
//	if err != nil {
//	    return err
//	}
//	files, err := tmpl.Create(dir, templates.Config{ProjectName: "shop", Addr: "localhost:8080"})
//
// # Template Variables
//
//	{{.ProjectName}}     - Name of the project
//	{{.Addr}}            - Listen address written to reactor.yaml
//	{{.WithPage}}        - Whether index.html is written and served
package templates
