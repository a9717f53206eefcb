package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document is the root of a node tree. The tree itself is read-only once
// built; listener registration is safe for concurrent use.
type Document struct {
	root *Node
	mu   sync.Mutex
}

// NewDocument wraps a tree whose top-level element is documentElement.
func NewDocument(documentElement *Node) *Document {
	root := &Node{Type: DocumentNode}
	if documentElement != nil {
		root.Append(documentElement)
	}
	return &Document{root: root}
}

// Parse builds a Document from HTML. Missing html, head and body elements
// are synthesized the way browsers do.
func Parse(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := &Node{Type: DocumentNode}
	convertChildren(root, hn)
	return &Document{root: root}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func convertChildren(dst *Node, src *html.Node) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			el := &Node{Type: ElementNode, Data: c.Data}
			for _, a := range c.Attr {
				el.Attrs = append(el.Attrs, Attr{Key: a.Key, Val: a.Val})
			}
			dst.Append(el)
			convertChildren(el, c)
		case html.TextNode:
			dst.Append(NewText(c.Data))
		}
	}
}

// Root returns the document node itself.
func (d *Document) Root() *Node { return d.root }

// DocumentElement returns the top-level element, usually <html>.
func (d *Document) DocumentElement() *Node {
	for _, c := range d.root.Children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Node {
	de := d.DocumentElement()
	if de == nil {
		return nil
	}
	for _, c := range de.Children {
		if c.Type == ElementNode && c.Data == "body" {
			return c
		}
	}
	return nil
}

// Title returns the whitespace-collapsed text of the first <title>.
func (d *Document) Title() string {
	t := d.root.firstElement("title")
	if t == nil {
		return ""
	}
	return strings.Join(strings.Fields(t.TextContent()), " ")
}
