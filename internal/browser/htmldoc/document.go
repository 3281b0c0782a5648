// File: internal/browser/htmldoc/document.go
package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// Default viewport dimensions.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

var errForeignNode = errors.New("node does not belong to this document")

// Document is an in-memory DOM built from parsed HTML. It is safe for
// concurrent use: lookups take a read lock and mutations a write lock, so a
// test can mutate the tree while a find is polling it.
type Document struct {
	mu      sync.RWMutex
	root    *html.Node
	shadows map[*html.Node]*html.Node // host -> shadow root
	hosts   map[*html.Node]*html.Node // shadow root -> host
	rules   map[*html.Node][]styleRule

	width, height    float64
	scrollX, scrollY float64

	win    *Window
	logger *zap.Logger
}

var (
	_ element.Document         = (*Document)(nil)
	_ element.AnonymousContent = (*Document)(nil)
)

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the viewport size in CSS pixels.
func WithViewport(width, height float64) Option {
	return func(d *Document) {
		d.width, d.height = width, height
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Parse builds a document from HTML.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &Document{
		root:    root,
		shadows: make(map[*html.Node]*html.Node),
		hosts:   make(map[*html.Node]*html.Node),
		width:   DefaultViewportWidth,
		height:  DefaultViewportHeight,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("htmldoc")
	d.win = &Window{doc: d}

	d.adoptDeclarativeShadowRoots(root)
	d.compileStyles()
	return d, nil
}

// ParseString builds a document from an HTML string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// ParseFile builds a document from an HTML file.
func ParseFile(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Window returns the document's window.
func (d *Document) Window() *Window { return d.win }

// nodeOf unwraps a node belonging to this document.
func (d *Document) nodeOf(n element.Node) (*html.Node, error) {
	switch v := n.(type) {
	case *Document:
		if v == d {
			return d.root, nil
		}
	case *Element:
		if v != nil && v.doc == d {
			return v.n, nil
		}
	case *ShadowRoot:
		if v != nil && v.doc == d {
			return v.n, nil
		}
	case *Node:
		if v != nil && v.doc == d {
			return v.n, nil
		}
	}
	return nil, errForeignNode
}

// --- shadow trees ---

func isShadowTemplate(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Template {
		return false
	}
	for _, key := range []string{"shadowrootmode", "shadowroot"} {
		if v, ok := attr(n, key); ok && (v == "open" || v == "closed") {
			return true
		}
	}
	return false
}

// adoptDeclarativeShadowRoots turns <template shadowrootmode> children into
// attached shadow trees, recursively. Callers hold d.mu or own d exclusively.
func (d *Document) adoptDeclarativeShadowRoots(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if n.Type == html.ElementNode && isShadowTemplate(c) && d.shadows[n] == nil {
				sr := d.attachShadowLocked(n)
				for gc := c.FirstChild; gc != nil; {
					following := gc.NextSibling
					c.RemoveChild(gc)
					sr.AppendChild(gc)
					gc = following
				}
				n.RemoveChild(c)
				d.adoptDeclarativeShadowRoots(sr)
			} else {
				d.adoptDeclarativeShadowRoots(c)
			}
		}
		c = next
	}
}

func (d *Document) attachShadowLocked(host *html.Node) *html.Node {
	sr := &html.Node{Type: html.DocumentNode, Data: shadowRootData}
	d.shadows[host] = sr
	d.hosts[sr] = host
	return sr
}

// AttachShadow attaches a shadow tree built from fragment to host.
func (d *Document) AttachShadow(host element.Element, fragment string) (*ShadowRoot, error) {
	n, err := d.nodeOf(host)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.shadows[n]; exists {
		return nil, fmt.Errorf("element <%s> already hosts a shadow root", n.Data)
	}
	nodes, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}
	sr := d.attachShadowLocked(n)
	for _, c := range nodes {
		sr.AppendChild(c)
	}
	d.adoptDeclarativeShadowRoots(sr)
	d.compileStyles()
	d.logger.Debug("Attached shadow root.", zap.String("host", n.Data))
	return &ShadowRoot{doc: d, n: sr}, nil
}

// --- mutation ---

func parseFragment(fragment string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	return nodes, nil
}

// AppendHTML parses fragment and appends the result to parent, returning the
// top-level elements that were added.
func (d *Document) AppendHTML(parent element.ParentNode, fragment string) ([]element.Element, error) {
	p, err := d.nodeOf(parent)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	nodes, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}
	var added []*html.Node
	for _, c := range nodes {
		p.AppendChild(c)
		if c.Type == html.ElementNode {
			added = append(added, c)
		}
	}
	d.adoptDeclarativeShadowRoots(p)
	d.compileStyles()
	return d.wrapElements(added), nil
}

// Remove detaches n from its parent.
func (d *Document) Remove(n element.Node) error {
	hn, err := d.nodeOf(n)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if hn.Parent == nil {
		return fmt.Errorf("node <%s> has no parent", hn.Data)
	}
	hn.Parent.RemoveChild(hn)
	d.forgetShadows(hn)
	d.compileStyles()
	return nil
}

// forgetShadows drops shadow bookkeeping for hosts in the detached subtree so
// the subtree can be collected.
func (d *Document) forgetShadows(n *html.Node) {
	if sr, ok := d.shadows[n]; ok {
		d.forgetShadows(sr)
		delete(d.shadows, n)
		delete(d.hosts, sr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forgetShadows(c)
	}
}

// SetAttribute sets or replaces an attribute.
func (d *Document) SetAttribute(el element.Element, name, value string) error {
	n, err := d.nodeOf(el)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name = strings.ToLower(name)
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return nil
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

// RemoveAttribute removes an attribute if present.
func (d *Document) RemoveAttribute(el element.Element, name string) error {
	n, err := d.nodeOf(el)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name = strings.ToLower(name)
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
	return nil
}

// ScrollTo sets the scroll offsets, clamped at zero.
func (d *Document) ScrollTo(x, y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrollX, d.scrollY = max(0, x), max(0, y)
}

// SetViewport resizes the viewport.
func (d *Document) SetViewport(width, height float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = width, height
}

// --- element.Document ---

func (d *Document) HTMLNode() *html.Node { return d.root }

func (d *Document) NodeType() element.NodeType { return element.DocumentNode }

func (d *Document) ParentNode() element.Node { return nil }

func (d *Document) OwnerDocument() element.Document { return nil }

func (d *Document) CompareDocumentPosition(other element.Node) element.DocumentPosition {
	return d.comparePosition(d.root, other)
}

func (d *Document) IsSameNode(other element.Node) bool { return sameNode(d.root, other) }

func (d *Document) GetElementsByTagName(name string) ([]element.Element, error) {
	return d.elementsByTagName(d.root, name), nil
}

func (d *Document) GetElementsByClassName(names string) ([]element.Element, error) {
	return d.elementsByClassName(d.root, names), nil
}

func (d *Document) QuerySelector(selector string) (element.Element, error) {
	return d.querySelector(d.root, selector)
}

func (d *Document) QuerySelectorAll(selector string) ([]element.Element, error) {
	return d.querySelectorAll(d.root, selector)
}

func (d *Document) GetElementByID(id string) (element.Element, error) {
	return d.elementByID(d.root, id), nil
}

func (d *Document) GetElementsByName(name string) ([]element.Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElements(collect(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "name")
		return ok && v == name
	})), nil
}

func (d *Document) DocumentElement() element.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrapElement(c)
		}
	}
	return nil
}

func (d *Document) DefaultView() element.Window { return d.win }

// Body returns the body element, or nil.
func (d *Document) Body() element.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElement(first(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body }))
}

// --- element.AnonymousContent ---

// AnonymousNodes returns the element children of el's shadow tree.
func (d *Document) AnonymousNodes(el element.Element) ([]element.Element, error) {
	n, err := d.nodeOf(el)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	sr, ok := d.shadows[n]
	if !ok {
		return nil, nil
	}
	var children []*html.Node
	for c := sr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, c)
		}
	}
	return d.wrapElements(children), nil
}

// AnonymousElementByAttribute returns the first element in el's shadow tree
// whose attribute name equals value.
func (d *Document) AnonymousElementByAttribute(el element.Element, name, value string) (element.Element, error) {
	n, err := d.nodeOf(el)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	sr, ok := d.shadows[n]
	if !ok {
		return nil, nil
	}
	return d.wrapElement(first(sr, func(c *html.Node) bool {
		v, ok := attr(c, name)
		return ok && v == value
	})), nil
}
