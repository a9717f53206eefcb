package dom

import (
	"fmt"
	"strings"
)

// compound is one simple selector sequence such as button#go.primary.
type compound struct {
	tag     string
	id      string
	classes []string
}

// Selector is a parsed selector: compounds joined by the descendant combinator.
type Selector struct {
	raw   string
	parts []compound
}

// String returns the selector as written.
func (s Selector) String() string { return s.raw }

// ParseSelector parses selectors made of tag, #id and .class tokens, with
// whitespace as the descendant combinator.
func ParseSelector(s string) (Selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Selector{}, fmt.Errorf("selector: empty")
	}
	sel := Selector{raw: strings.Join(fields, " ")}
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return Selector{}, fmt.Errorf("selector %q: %w", s, err)
		}
		sel.parts = append(sel.parts, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := strings.IndexAny(s, "#.")
	if i < 0 {
		i = len(s)
	}
	c.tag = strings.ToLower(s[:i])
	if c.tag == "*" {
		c.tag = ""
	}
	if !validName(c.tag) {
		return c, fmt.Errorf("invalid tag %q", s[:i])
	}
	for rest := s[i:]; rest != ""; {
		kind := rest[0]
		rest = rest[1:]
		j := strings.IndexAny(rest, "#.")
		if j < 0 {
			j = len(rest)
		}
		name := rest[:j]
		rest = rest[j:]
		if name == "" || !validName(name) {
			return c, fmt.Errorf("invalid token %q", string(kind)+name)
		}
		if kind == '#' {
			if c.id != "" {
				return c, fmt.Errorf("more than one id")
			}
			c.id = name
		} else {
			c.classes = append(c.classes, name)
		}
	}
	return c, nil
}

func validName(s string) bool {
	for _, r := range s {
		if r == '[' || r == ']' || r == ':' || r == '>' || r == '+' || r == '~' || r == ',' {
			return false
		}
	}
	return true
}

func (c compound) matches(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && n.ID() != c.id {
		return false
	}
	for _, cl := range c.classes {
		if !n.HasClass(cl) {
			return false
		}
	}
	return true
}

// Matches reports whether n satisfies the selector.
func (s Selector) Matches(n *Node) bool {
	last := len(s.parts) - 1
	if last < 0 || !s.parts[last].matches(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if s.parts[i].matches(p) {
			i--
		}
	}
	return i < 0
}

// Query returns the first element in document order matching selector.
func (d *Document) Query(selector string) (*Node, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	var found *Node
	d.root.walk(func(n *Node) bool {
		if sel.Matches(n) {
			found = n
			return false
		}
		return true
	})
	return found, nil
}

// QueryAll returns every element matching selector, in document order.
func (d *Document) QueryAll(selector string) ([]*Node, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	d.root.walk(func(n *Node) bool {
		if sel.Matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}
