// File: internal/browser/element/dom.go
package element

// The interfaces below are the slice of a DOM that element lookup and
// reference tracking consume. Concrete hosts live in sibling packages
// (htmldoc for an in-memory tree, cdphost for a live Chromium tab).

// NodeType mirrors the DOM nodeType constants.
type NodeType int

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	DocumentNode         NodeType = 9
	DocumentFragmentNode NodeType = 11
)

// DocumentPosition is the bitmask returned by CompareDocumentPosition.
type DocumentPosition uint16

const (
	PositionDisconnected           DocumentPosition = 0x01
	PositionPreceding              DocumentPosition = 0x02
	PositionFollowing              DocumentPosition = 0x04
	PositionContains               DocumentPosition = 0x08
	PositionContainedBy            DocumentPosition = 0x10
	PositionImplementationSpecific DocumentPosition = 0x20
)

// Has reports whether all bits of flag are set.
func (p DocumentPosition) Has(flag DocumentPosition) bool {
	return p&flag == flag
}

// Node is the minimal node surface.
type Node interface {
	NodeType() NodeType
	// ParentNode returns nil for roots. A shadow root's parent is nil; use
	// ShadowRoot.Host to cross the boundary.
	ParentNode() Node
	// OwnerDocument returns nil for documents themselves.
	OwnerDocument() Document
	CompareDocumentPosition(other Node) DocumentPosition
	IsSameNode(other Node) bool
}

// ParentNode is implemented by documents, shadow roots and elements.
type ParentNode interface {
	Node
	// Lookups fail only when the host cannot answer; wrap such failures in
	// HostError so they are not mistaken for a malformed selector.
	GetElementsByTagName(name string) ([]Element, error)
	GetElementsByClassName(names string) ([]Element, error)
	// QuerySelector returns nil, nil when nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
}

// IDLookup is implemented by documents and shadow roots. A missing id is
// nil, nil.
type IDLookup interface {
	GetElementByID(id string) (Element, error)
}

// NameLookup is implemented by documents.
type NameLookup interface {
	GetElementsByName(name string) ([]Element, error)
}

// Rect is a DOMRect in CSS pixels relative to the viewport.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Point is a coordinate pair.
type Point struct {
	X, Y float64
}

// WeakHandle refers to an element without keeping it alive.
type WeakHandle interface {
	// Resolve returns the element, or false once it has been collected.
	Resolve() (Element, bool)
}

// Element is a DOM element.
type Element interface {
	ParentNode
	TagName() string
	LocalName() string
	NamespaceURI() string
	// Text is the rendered text content used for link matching.
	Text() string
	GetAttribute(name string) (string, bool)
	BoundingClientRect() Rect
	Weak() WeakHandle
}

// Scroller is an optional Element capability.
type Scroller interface {
	ScrollIntoView() error
}

// ShadowRoot is an attached shadow tree root.
type ShadowRoot interface {
	ParentNode
	IDLookup
	Host() Element
}

// ShadowHost is an optional Element capability. It returns ErrNoShadowRoot
// when the element hosts no shadow tree.
type ShadowHost interface {
	ShadowRoot() (ShadowRoot, error)
}

// XPathResultType selects the shape of an XPath evaluation.
type XPathResultType int

const (
	FirstOrderedNodeType    XPathResultType = 9
	OrderedNodeIteratorType XPathResultType = 5
)

// XPathResult is the result of Document.Evaluate.
type XPathResult interface {
	// SingleNodeValue is valid for FirstOrderedNodeType.
	SingleNodeValue() Node
	// IterateNext is valid for OrderedNodeIteratorType and returns nil when
	// the iterator is exhausted.
	IterateNext() Node
}

// XPathEvaluator evaluates XPath against a context node.
type XPathEvaluator interface {
	Evaluate(expr string, contextNode Node, resultType XPathResultType) (XPathResult, error)
}

// Document is a DOM document.
type Document interface {
	ParentNode
	IDLookup
	NameLookup
	XPathEvaluator
	DocumentElement() Element
	DefaultView() Window
	// ElementsFromPoint returns the elements at the viewport point in paint
	// order, topmost first.
	ElementsFromPoint(x, y float64) []Element
}

// AnonymousContent is an optional Document capability for hosts that expose
// anonymous (binding generated) nodes.
type AnonymousContent interface {
	AnonymousNodes(el Element) ([]Element, error)
	AnonymousElementByAttribute(el Element, name, value string) (Element, error)
}

// Style is a computed style declaration.
type Style interface {
	PropertyValue(name string) string
}

// Window is the browsing context's global object.
type Window interface {
	Document() Document
	InnerWidth() float64
	InnerHeight() float64
	PageXOffset() float64
	PageYOffset() float64
	ComputedStyle(el Element) Style
	IsElementDisplayed(el Element) bool
}

// Container identifies where lookups and staleness checks happen: a window
// and, optionally, the shadow root the session has switched into.
type Container struct {
	Window     Window
	ShadowRoot ShadowRoot
}

// Root returns the shadow root when set, otherwise the window's document.
func (c Container) Root() ParentNode {
	if c.ShadowRoot != nil {
		return c.ShadowRoot
	}
	return c.Window.Document()
}
