// Package dom is a small in-process document model: an HTML tree parsed with
// golang.org/x/net/html, element accessors, and W3C-style event dispatch. It
// is the host environment the tracker runs against when pages are served from
// Go rather than a browser.
package dom

import (
	"strings"

	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
)

// NodeType discriminates the kinds of nodes kept in the tree.
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
)

// Attr is a single element attribute.
type Attr struct {
	Key string
	Val string
}

// Node is a document, element, or text node.
type Node struct {
	Type     NodeType
	Data     string // lowercase tag name for elements, content for text
	Attrs    []Attr
	Parent   *Node
	Children []*Node

	listeners []*listener
}

var _ host.Element = (*Node)(nil)

// NewElement builds a detached element. Attributes are given as key/value pairs.
func NewElement(tag string, kv ...string) *Node {
	n := &Node{Type: ElementNode, Data: strings.ToLower(tag)}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs = append(n.Attrs, Attr{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

// NewText builds a detached text node.
func NewText(s string) *Node {
	return &Node{Type: TextNode, Data: s}
}

// Append adds children to n and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// TagName returns the uppercase tag name. Non-element nodes return "".
func (n *Node) TagName() string {
	if n.Type != ElementNode {
		return ""
	}
	return strings.ToUpper(n.Data)
}

// ID returns the id attribute, or "" when absent.
func (n *Node) ID() string { return n.Attr("id") }

// ClassName returns the raw class attribute.
func (n *Node) ClassName() string { return n.Attr("class") }

// IsSameNode reports whether other is n itself.
func (n *Node) IsSameNode(other host.Element) bool {
	o, ok := other.(*Node)
	return ok && o == n
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether name is one of the element's classes.
func (n *Node) HasClass(name string) bool {
	for _, c := range strings.Fields(n.ClassName()) {
		if c == name {
			return true
		}
	}
	return false
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	n.walk(func(c *Node) bool {
		if c.Type == TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// walk visits descendants in document order. Returning false stops the walk.
func (n *Node) walk(fn func(*Node) bool) bool {
	for _, c := range n.Children {
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

// firstElement returns the first descendant element with the given tag.
func (n *Node) firstElement(tag string) *Node {
	var found *Node
	n.walk(func(c *Node) bool {
		if c.Type == ElementNode && c.Data == tag {
			found = c
			return false
		}
		return true
	})
	return found
}
