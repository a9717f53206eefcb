package dom

import (
	"fmt"
	"net/url"
	"os"

	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
)

// Page binds a Document and its location into a host.Environment.
type Page struct {
	url string
	doc *Document
}

var _ host.Environment = (*Page)(nil)

// NewPage validates that rawURL is absolute and returns a Page.
func NewPage(rawURL string, doc *Document) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("page url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("page url %q is not absolute", rawURL)
	}
	if doc == nil {
		return nil, fmt.Errorf("page %s: nil document", rawURL)
	}
	return &Page{url: u.String(), doc: doc}, nil
}

// LoadPage parses the HTML file at path and serves it at rawURL.
func LoadPage(path, rawURL string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", path, err)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", path, err)
	}
	return NewPage(rawURL, doc)
}

// Document returns the page's document.
func (p *Page) Document() *Document { return p.doc }

func (p *Page) CurrentURL() (string, error) { return p.url, nil }

func (p *Page) CurrentTitle() (string, error) {
	if p.doc.DocumentElement() == nil {
		return "", fmt.Errorf("document title: %w", host.ErrEnvironmentUnavailable)
	}
	return p.doc.Title(), nil
}

func (p *Page) Body() host.Element {
	if b := p.doc.Body(); b != nil {
		return b
	}
	return nil
}

func (p *Page) DocumentElement() host.Element {
	if de := p.doc.DocumentElement(); de != nil {
		return de
	}
	return nil
}

// AddClickListener attaches fn to the document node, the outermost point of
// every propagation path.
func (p *Page) AddClickListener(opts host.ListenerOptions, fn host.Listener) (host.Registration, error) {
	return p.doc.AddEventListener(p.doc.Root(), "click", opts, fn), nil
}

// Click resolves selector and dispatches a click to the first match. It
// returns the clicked element.
func (p *Page) Click(selector string) (*Node, error) {
	n, err := p.doc.Query(selector)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return n, p.doc.Click(n)
}
