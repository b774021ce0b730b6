package view

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// ReactiveAttr marks an element as displaying a store key.
const ReactiveAttr = "data-reactive"

// Document is an HTML page kept in memory and updated by a store.
//
// Elements carrying data-reactive="key" display that key, formatted with
// the document's Formatter. Elements matched by a binding selector display
// the plain text of the value. Document is safe for concurrent use.
type Document struct {
	mu     sync.RWMutex
	root   *html.Node
	format Formatter
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithFormatter sets the formatter used for data-reactive elements.
func WithFormatter(f Formatter) DocumentOption {
	return func(d *Document) {
		d.format = f
	}
}

// ParseDocument reads an HTML page.
func ParseDocument(r io.Reader, opts ...DocumentOption) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("view: parse document: %w", err)
	}
	d := &Document{root: root, format: NewFormatter()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MustParseDocument is like ParseDocument for literal markup. It panics on
// error.
func MustParseDocument(markup string, opts ...DocumentOption) *Document {
	d, err := ParseDocument(strings.NewReader(markup), opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// UpdateView implements reactive.ViewSink.
func (d *Document) UpdateView(u reactive.ViewUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	formatted := d.format.Format(u.Key, u.Value)
	for _, n := range d.query(attrSelector(ReactiveAttr, u.Key)) {
		setText(n, formatted)
	}

	plain := Text(u.Value)
	for _, sel := range u.Selectors {
		s, err := parseSelector(sel)
		if err != nil {
			continue
		}
		for _, n := range d.query(s) {
			setText(n, plain)
		}
	}
}

// ReactiveKeys implements reactive.KeySource. Keys are returned once each,
// in document order.
func (d *Document) ReactiveKeys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var keys []string
	seen := make(map[string]bool)
	walk(d.root, func(n *html.Node) {
		if key, ok := attr(n, ReactiveAttr); ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	})
	return keys
}

// Text returns the text content of the first element matching selector.
func (d *Document) Text(selector string) (string, error) {
	texts, err := d.Texts(selector)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("view: no element matches %q", selector)
	}
	return texts[0], nil
}

// Texts returns the text content of every element matching selector.
func (d *Document) Texts(selector string) ([]string, error) {
	s, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for _, n := range d.query(s) {
		out = append(out, textContent(n))
	}
	return out, nil
}

// Render writes the current page as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String returns the rendered page.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) query(s selector) []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) {
		if s.match(n) {
			out = append(out, n)
		}
	})
	return out
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// setText replaces every child of n with a single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
