// File: internal/browser/cdphost/node.go
package cdphost

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// remote is implemented by every node wrapper of this package.
type remote interface {
	ref() *nodeRef
}

// nodeRef is a remote DOM node: its object id for calls and its backend id
// for identity.
type nodeRef struct {
	b       *Browser
	obj     runtime.RemoteObjectID
	backend cdp.BackendNodeID
	typ     element.NodeType
}

// Element is a remote element.
type Element struct{ nodeRef }

// Document is a remote document.
type Document struct{ nodeRef }

// ShadowRoot is a remote shadow root.
type ShadowRoot struct{ nodeRef }

var (
	_ element.Element        = (*Element)(nil)
	_ element.Scroller       = (*Element)(nil)
	_ element.ShadowHost     = (*Element)(nil)
	_ element.Document       = (*Document)(nil)
	_ element.ShadowRoot     = (*ShadowRoot)(nil)
	_ element.XPathEvaluator = (*Document)(nil)
	_ element.Node           = (*nodeRef)(nil)
)

func (r *nodeRef) ref() *nodeRef { return r }

// do runs fn on the tab and logs failures. Exceptions thrown by the page
// script are returned as is, so a rejected selector stays a selector error.
// Any other failure means the browser could not answer and is returned as an
// element.HostError. Accessors without an error result fall back to zero
// values.
func (r *nodeRef) do(op string, fn func(ctx context.Context) error) error {
	err := r.b.run(fn)
	if err == nil {
		return nil
	}
	r.b.logger.Debug("DOM call failed.", zap.String("op", op), zap.Error(err))

	var exc *runtime.ExceptionDetails
	if errors.As(err, &exc) {
		return err
	}
	return &element.HostError{Op: op, Err: err}
}

func (r *nodeRef) node(op, fn string, nodes []runtime.RemoteObjectID, args ...interface{}) (element.Node, error) {
	var n element.Node
	err := r.do(op, func(ctx context.Context) (err error) {
		n, err = r.b.callNode(ctx, r.obj, fn, nodes, args...)
		return err
	})
	return n, err
}

func (r *nodeRef) elements(op, fn string, args ...interface{}) ([]element.Element, error) {
	var nodes []element.Node
	err := r.do(op, func(ctx context.Context) (err error) {
		nodes, err = r.b.callNodes(ctx, r.obj, fn, nil, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	els := make([]element.Element, 0, len(nodes))
	for _, n := range nodes {
		if el, ok := n.(*Element); ok {
			els = append(els, el)
		}
	}
	return els, nil
}

func (r *nodeRef) value(op, fn string, out interface{}, args ...interface{}) error {
	return r.do(op, func(ctx context.Context) error {
		return r.b.callValue(ctx, r.obj, fn, out, nil, args...)
	})
}

// asElement narrows a node to an element, returning an untyped nil
// otherwise.
func asElement(n element.Node) element.Element {
	if el, ok := n.(*Element); ok {
		return el
	}
	return nil
}

// --- element.Node ---

func (r *nodeRef) NodeType() element.NodeType { return r.typ }

func (r *nodeRef) ParentNode() element.Node {
	n, _ := r.node("parentNode", "function() { return this.parentNode; }", nil)
	return n
}

func (r *nodeRef) OwnerDocument() element.Document {
	n, _ := r.node("ownerDocument", "function() { return this.ownerDocument; }", nil)
	if doc, ok := n.(*Document); ok {
		return doc
	}
	return nil
}

// CompareDocumentPosition asks the page. Nodes of another browser are
// disconnected.
func (r *nodeRef) CompareDocumentPosition(other element.Node) element.DocumentPosition {
	o, ok := other.(remote)
	if !ok || o.ref().b != r.b {
		return element.PositionDisconnected | element.PositionImplementationSpecific
	}
	var pos int
	err := r.do("compareDocumentPosition", func(ctx context.Context) error {
		return r.b.callValue(ctx, r.obj, "function(o) { return this.compareDocumentPosition(o); }",
			&pos, []runtime.RemoteObjectID{o.ref().obj})
	})
	if err != nil {
		return element.PositionDisconnected
	}
	return element.DocumentPosition(pos)
}

// IsSameNode compares backend node ids, which are stable for the node's
// lifetime.
func (r *nodeRef) IsSameNode(other element.Node) bool {
	o, ok := other.(remote)
	return ok && o.ref().b == r.b && o.ref().backend == r.backend
}

// --- element.ParentNode ---

const tagNameJS = `function(name) {
	if (this.getElementsByTagName) return Array.from(this.getElementsByTagName(name));
	const all = Array.from(this.querySelectorAll("*"));
	return name === "*" ? all : all.filter(e => e.localName === name.toLowerCase());
}`

const classNameJS = `function(names) {
	if (this.getElementsByClassName) return Array.from(this.getElementsByClassName(names));
	const wanted = names.split(/\s+/).filter(Boolean);
	if (!wanted.length) return [];
	return Array.from(this.querySelectorAll(wanted.map(c => "." + CSS.escape(c)).join("")));
}`

func (r *nodeRef) GetElementsByTagName(name string) ([]element.Element, error) {
	els, err := r.elements("getElementsByTagName", tagNameJS, name)
	if err != nil {
		return nil, err
	}
	return nonNil(els), nil
}

func (r *nodeRef) GetElementsByClassName(names string) ([]element.Element, error) {
	els, err := r.elements("getElementsByClassName", classNameJS, names)
	if err != nil {
		return nil, err
	}
	return nonNil(els), nil
}

// QuerySelector returns the page's SyntaxError for invalid selectors.
func (r *nodeRef) QuerySelector(selector string) (element.Element, error) {
	n, err := r.node("querySelector", "function(s) { return this.querySelector(s); }", nil, selector)
	if err != nil {
		return nil, err
	}
	return asElement(n), nil
}

func (r *nodeRef) QuerySelectorAll(selector string) ([]element.Element, error) {
	els, err := r.elements("querySelectorAll", "function(s) { return Array.from(this.querySelectorAll(s)); }", selector)
	if err != nil {
		return nil, err
	}
	return nonNil(els), nil
}

func nonNil(els []element.Element) []element.Element {
	if els == nil {
		return []element.Element{}
	}
	return els
}

// --- Element ---

func (e *Element) TagName() string {
	var s string
	_ = e.value("tagName", "function() { return this.tagName; }", &s)
	return s
}

func (e *Element) LocalName() string {
	var s string
	_ = e.value("localName", "function() { return this.localName; }", &s)
	return s
}

func (e *Element) NamespaceURI() string {
	var s string
	_ = e.value("namespaceURI", "function() { return this.namespaceURI || ''; }", &s)
	return s
}

func (e *Element) Text() string {
	var s string
	_ = e.value("text", "function() { return this.innerText ?? this.textContent ?? ''; }", &s)
	return s
}

func (e *Element) GetAttribute(name string) (string, bool) {
	var v *string
	_ = e.value("getAttribute", "function(n) { return this.hasAttribute(n) ? this.getAttribute(n) : null; }", &v, name)
	if v == nil {
		return "", false
	}
	return *v, true
}

func (e *Element) BoundingClientRect() element.Rect {
	var r struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	_ = e.value("getBoundingClientRect",
		"function() { const r = this.getBoundingClientRect(); return {x: r.x, y: r.y, width: r.width, height: r.height}; }", &r)
	return element.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (e *Element) Weak() element.WeakHandle {
	return &weakHandle{last: e.nodeRef}
}

func (e *Element) ScrollIntoView() error {
	return e.value("scrollIntoView", `function() { this.scrollIntoView({block: "start", inline: "nearest"}); }`, nil)
}

// ShadowRoot returns the element's open shadow root.
func (e *Element) ShadowRoot() (element.ShadowRoot, error) {
	n, err := e.node("shadowRoot", "function() { return this.shadowRoot; }", nil)
	if err != nil {
		return nil, err
	}
	sr, ok := n.(*ShadowRoot)
	if !ok {
		return nil, element.ErrNoShadowRoot
	}
	return sr, nil
}

// --- ShadowRoot ---

func (s *ShadowRoot) GetElementByID(id string) (element.Element, error) {
	n, err := s.node("getElementById", "function(id) { return this.getElementById(id); }", nil, id)
	if err != nil {
		return nil, err
	}
	return asElement(n), nil
}

func (s *ShadowRoot) Host() element.Element {
	n, _ := s.node("host", "function() { return this.host; }", nil)
	return asElement(n)
}

// --- weak handles ---

// weakHandle re-resolves the backend node id so calls use a live object. A
// node the page has discarded falls back to its last object, whose calls
// fail, so lookups see it as detached rather than unknown.
type weakHandle struct {
	last nodeRef
}

func (w *weakHandle) Resolve() (element.Element, bool) {
	b := w.last.b
	var el element.Element
	err := b.run(func(ctx context.Context) error {
		obj, err := resolve(ctx, w.last.backend)
		if err != nil {
			return err
		}
		n, err := b.wrap(ctx, obj)
		if err != nil {
			return err
		}
		el = asElement(n)
		if el == nil {
			return fmt.Errorf("backend node %d is not an element", w.last.backend)
		}
		return nil
	})
	if err != nil {
		b.logger.Debug("Backend node no longer resolves.", zap.Int64("backend_node_id", int64(w.last.backend)), zap.Error(err))
		return &Element{nodeRef: w.last}, true
	}
	return el, true
}
