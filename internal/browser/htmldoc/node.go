// File: internal/browser/htmldoc/node.go
package htmldoc

import (
	"strings"
	"weak"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// shadowRootData marks the synthetic node that roots an attached shadow tree.
const shadowRootData = "#shadow-root"

var namespaceURIs = map[string]string{
	"":     element.HTMLNamespace,
	"svg":  "http://www.w3.org/2000/svg",
	"math": "http://www.w3.org/1998/Math/MathML",
}

// htmlNoder is implemented by every node wrapper in this package.
type htmlNoder interface {
	HTMLNode() *html.Node
}

// Element wraps an element node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

// ShadowRoot wraps the root of a shadow tree attached to a host element.
type ShadowRoot struct {
	doc *Document
	n   *html.Node
}

// Node wraps text, comment and attribute nodes, which only appear as
// XPath results.
type Node struct {
	doc  *Document
	n    *html.Node
	typ  element.NodeType
	attr string
}

var (
	_ element.Element    = (*Element)(nil)
	_ element.Scroller   = (*Element)(nil)
	_ element.ShadowHost = (*Element)(nil)
	_ element.ShadowRoot = (*ShadowRoot)(nil)
	_ element.Node       = (*Node)(nil)
)

// wrap returns the wrapper appropriate for n. Callers hold d.mu.
func (d *Document) wrap(n *html.Node) element.Node {
	switch {
	case n == nil:
		return nil
	case n == d.root:
		return d
	case n.Type == html.ElementNode:
		return &Element{doc: d, n: n}
	case d.isShadowRoot(n):
		return &ShadowRoot{doc: d, n: n}
	case n.Type == html.TextNode:
		return &Node{doc: d, n: n, typ: element.TextNode}
	default:
		return &Node{doc: d, n: n, typ: 8}
	}
}

// wrapElement returns an untyped nil for a nil node.
func (d *Document) wrapElement(n *html.Node) element.Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

func (d *Document) wrapElements(nodes []*html.Node) []element.Element {
	els := make([]element.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{doc: d, n: n})
	}
	return els
}

func (d *Document) isShadowRoot(n *html.Node) bool {
	_, ok := d.hosts[n]
	return ok
}

func sameNode(n *html.Node, other element.Node) bool {
	if other == nil {
		return false
	}
	o, ok := other.(htmlNoder)
	return ok && o.HTMLNode() == n
}

// --- Element ---

// HTMLNode exposes the underlying parse tree node.
func (e *Element) HTMLNode() *html.Node { return e.n }

func (e *Element) NodeType() element.NodeType { return element.ElementNode }

func (e *Element) ParentNode() element.Node {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.wrap(e.n.Parent)
}

// OwnerDocument returns the document even for detached elements.
func (e *Element) OwnerDocument() element.Document { return e.doc }

func (e *Element) CompareDocumentPosition(other element.Node) element.DocumentPosition {
	return e.doc.comparePosition(e.n, other)
}

func (e *Element) IsSameNode(other element.Node) bool { return sameNode(e.n, other) }

func (e *Element) GetElementsByTagName(name string) ([]element.Element, error) {
	return e.doc.elementsByTagName(e.n, name), nil
}

func (e *Element) GetElementsByClassName(names string) ([]element.Element, error) {
	return e.doc.elementsByClassName(e.n, names), nil
}

func (e *Element) QuerySelector(selector string) (element.Element, error) {
	return e.doc.querySelector(e.n, selector)
}

func (e *Element) QuerySelectorAll(selector string) ([]element.Element, error) {
	return e.doc.querySelectorAll(e.n, selector)
}

// TagName is upper-cased for HTML elements, as in the DOM.
func (e *Element) TagName() string {
	if e.n.Namespace == "" {
		return strings.ToUpper(e.n.Data)
	}
	return e.n.Data
}

func (e *Element) LocalName() string { return e.n.Data }

func (e *Element) NamespaceURI() string {
	if uri, ok := namespaceURIs[e.n.Namespace]; ok {
		return uri
	}
	return e.n.Namespace
}

// Text returns the element's text content.
func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return htmlquery.InnerText(e.n)
}

func (e *Element) GetAttribute(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return attr(e.n, name)
}

func (e *Element) BoundingClientRect() element.Rect {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	r := e.doc.box(e.n)
	r.X -= e.doc.scrollX
	r.Y -= e.doc.scrollY
	return r
}

func (e *Element) Weak() element.WeakHandle {
	return &weakHandle{doc: e.doc, p: weak.Make(e.n)}
}

// ScrollIntoView aligns the element's top with the viewport and scrolls
// horizontally only as far as needed.
func (e *Element) ScrollIntoView() error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	box := e.doc.box(e.n)
	e.doc.scrollY = max(0, box.Y)
	switch {
	case box.X < e.doc.scrollX:
		e.doc.scrollX = max(0, box.X)
	case box.Right() > e.doc.scrollX+e.doc.width:
		e.doc.scrollX = max(0, box.Right()-e.doc.width)
	}
	return nil
}

// ShadowRoot returns the shadow root hosted by the element.
func (e *Element) ShadowRoot() (element.ShadowRoot, error) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	sr, ok := e.doc.shadows[e.n]
	if !ok {
		return nil, element.ErrNoShadowRoot
	}
	return &ShadowRoot{doc: e.doc, n: sr}, nil
}

// --- ShadowRoot ---

func (s *ShadowRoot) HTMLNode() *html.Node { return s.n }

func (s *ShadowRoot) NodeType() element.NodeType { return element.DocumentFragmentNode }

func (s *ShadowRoot) ParentNode() element.Node { return nil }

func (s *ShadowRoot) OwnerDocument() element.Document { return s.doc }

func (s *ShadowRoot) CompareDocumentPosition(other element.Node) element.DocumentPosition {
	return s.doc.comparePosition(s.n, other)
}

func (s *ShadowRoot) IsSameNode(other element.Node) bool { return sameNode(s.n, other) }

func (s *ShadowRoot) GetElementsByTagName(name string) ([]element.Element, error) {
	return s.doc.elementsByTagName(s.n, name), nil
}

func (s *ShadowRoot) GetElementsByClassName(names string) ([]element.Element, error) {
	return s.doc.elementsByClassName(s.n, names), nil
}

func (s *ShadowRoot) QuerySelector(selector string) (element.Element, error) {
	return s.doc.querySelector(s.n, selector)
}

func (s *ShadowRoot) QuerySelectorAll(selector string) ([]element.Element, error) {
	return s.doc.querySelectorAll(s.n, selector)
}

func (s *ShadowRoot) GetElementByID(id string) (element.Element, error) {
	return s.doc.elementByID(s.n, id), nil
}

func (s *ShadowRoot) Host() element.Element {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.wrapElement(s.doc.hosts[s.n])
}

// --- Node ---

func (n *Node) HTMLNode() *html.Node { return n.n }

func (n *Node) NodeType() element.NodeType { return n.typ }

func (n *Node) ParentNode() element.Node {
	if n.typ == attributeNode {
		return nil
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.doc.wrap(n.n.Parent)
}

func (n *Node) OwnerDocument() element.Document { return n.doc }

func (n *Node) CompareDocumentPosition(other element.Node) element.DocumentPosition {
	return n.doc.comparePosition(n.n, other)
}

func (n *Node) IsSameNode(other element.Node) bool {
	o, ok := other.(*Node)
	if !ok {
		return n.typ != attributeNode && sameNode(n.n, other)
	}
	return o.n == n.n && o.typ == n.typ && o.attr == n.attr
}

// --- weak handles ---

type weakHandle struct {
	doc *Document
	p   weak.Pointer[html.Node]
}

func (w *weakHandle) Resolve() (element.Element, bool) {
	n := w.p.Value()
	if n == nil {
		return nil, false
	}
	return &Element{doc: w.doc, n: n}, true
}

// --- helpers ---

const attributeNode element.NodeType = 2

func attr(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
