package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// ErrBadSelector is returned for selectors the document cannot match.
var ErrBadSelector = errors.New("view: unsupported selector")

// selector is a comma separated list of compound selectors.
// Only tag, #id, .class and [attr] / [attr=value] parts are supported;
// combinators and pseudo-classes are not.
type selector []compound

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

func attrSelector(name, value string) selector {
	return selector{{attrs: []attrMatch{{name: name, value: value, hasValue: true}}}}
}

func parseSelector(src string) (selector, error) {
	var out selector
	for _, part := range strings.Split(src, ",") {
		c, err := parseCompound(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadSelector, src, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCompound(src string) (compound, error) {
	var c compound
	if src == "" {
		return c, errors.New("empty selector")
	}
	if strings.ContainsAny(src, " >+~:") {
		return c, errors.New("combinators and pseudo-classes are not supported")
	}

	i := 0
	name := func() string {
		start := i
		for i < len(src) && !strings.ContainsRune("#.[", rune(src[i])) {
			i++
		}
		return src[start:i]
	}

	if c.tag = strings.ToLower(name()); c.tag == "*" {
		c.tag = ""
	}
	for i < len(src) {
		switch src[i] {
		case '#':
			i++
			if c.id = name(); c.id == "" {
				return c, errors.New("empty id")
			}
		case '.':
			i++
			class := name()
			if class == "" {
				return c, errors.New("empty class")
			}
			c.classes = append(c.classes, class)
		case '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				return c, errors.New("unterminated attribute")
			}
			m, err := parseAttr(src[i+1 : i+end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, m)
			i += end + 1
		default:
			return c, fmt.Errorf("unexpected %q", src[i])
		}
	}
	return c, nil
}

func parseAttr(src string) (attrMatch, error) {
	name, value, hasValue := strings.Cut(src, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return attrMatch{}, errors.New("empty attribute name")
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return attrMatch{name: strings.ToLower(name), value: value, hasValue: hasValue}, nil
}

func (s selector) match(n *html.Node) bool {
	for _, c := range s {
		if c.match(n) {
			return true
		}
	}
	return false
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if id, ok := attr(n, "id"); !ok || id != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		class, _ := attr(n, "class")
		have := strings.Fields(class)
		for _, want := range c.classes {
			if !slices.Contains(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := attr(n, a.name)
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}
	return true
}
