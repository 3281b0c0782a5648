// File: internal/browser/cdphost/window.go
package cdphost

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// --- Document ---

func (d *Document) GetElementByID(id string) (element.Element, error) {
	n, err := d.node("getElementById", "function(id) { return this.getElementById(id); }", nil, id)
	if err != nil {
		return nil, err
	}
	return asElement(n), nil
}

func (d *Document) GetElementsByName(name string) ([]element.Element, error) {
	els, err := d.elements("getElementsByName", "function(n) { return Array.from(this.getElementsByName(n)); }", name)
	if err != nil {
		return nil, err
	}
	return nonNil(els), nil
}

func (d *Document) DocumentElement() element.Element {
	n, _ := d.node("documentElement", "function() { return this.documentElement; }", nil)
	return asElement(n)
}

// DefaultView returns the tab's window. Documents of frames share it.
func (d *Document) DefaultView() element.Window { return d.b.win }

func (d *Document) ElementsFromPoint(x, y float64) []element.Element {
	els, _ := d.elements("elementsFromPoint", "function(x, y) { return this.elementsFromPoint(x, y); }", x, y)
	return nonNil(els)
}

const evaluateJS = `function(ctx, expr, type) {
	const res = this.evaluate(expr, ctx, null, type, null);
	if (type === XPathResult.FIRST_ORDERED_NODE_TYPE) return [res.singleNodeValue].filter(n => n !== null);
	const out = [];
	for (let n = res.iterateNext(); n; n = res.iterateNext()) out.push(n);
	return out;
}`

// Evaluate runs the expression in the page. Syntax errors and non-node
// results surface as the page's exception.
func (d *Document) Evaluate(expr string, contextNode element.Node, resultType element.XPathResultType) (element.XPathResult, error) {
	ctxObj := d.obj
	if contextNode != nil {
		r, ok := contextNode.(remote)
		if !ok || r.ref().b != d.b {
			return nil, fmt.Errorf("context node does not belong to this document")
		}
		ctxObj = r.ref().obj
	}

	var nodes []element.Node
	err := d.do("evaluate", func(ctx context.Context) (err error) {
		nodes, err = d.b.callNodes(ctx, d.obj, evaluateJS, []runtime.RemoteObjectID{ctxObj}, expr, int(resultType))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &xpathResult{nodes: nodes}, nil
}

// xpathResult holds the nodes fetched by Evaluate. Both result shapes are
// read from the same slice.
type xpathResult struct {
	nodes []element.Node
	next  int
}

func (r *xpathResult) SingleNodeValue() element.Node {
	if len(r.nodes) == 0 {
		return nil
	}
	return r.nodes[0]
}

func (r *xpathResult) IterateNext() element.Node {
	if r.next >= len(r.nodes) {
		return nil
	}
	n := r.nodes[r.next]
	r.next++
	return n
}

// --- Window ---

// Window is the tab's global object.
type Window struct {
	b *Browser
}

var _ element.Window = (*Window)(nil)

// Document returns the tab's current document. Each call resolves it anew,
// so a navigation yields a different document.
func (w *Window) Document() element.Document {
	var n element.Node
	err := w.b.run(func(ctx context.Context) (err error) {
		n, err = w.b.evaluateNode(ctx, "document")
		return err
	})
	if err != nil {
		w.b.logger.Debug("Failed to resolve document.", zap.Error(err))
		return nil
	}
	if doc, ok := n.(*Document); ok {
		return doc
	}
	return nil
}

func (w *Window) number(expr string) float64 {
	var v float64
	err := w.b.run(func(ctx context.Context) error {
		return evaluateValue(ctx, expr, &v)
	})
	if err != nil {
		w.b.logger.Debug("Failed to read window metric.", zap.String("expr", expr), zap.Error(err))
	}
	return v
}

func (w *Window) InnerWidth() float64  { return w.number("window.innerWidth") }
func (w *Window) InnerHeight() float64 { return w.number("window.innerHeight") }
func (w *Window) PageXOffset() float64 { return w.number("window.pageXOffset") }
func (w *Window) PageYOffset() float64 { return w.number("window.pageYOffset") }

// ComputedStyle returns a snapshot-free view over getComputedStyle. Each
// property read is a round trip.
func (w *Window) ComputedStyle(el element.Element) element.Style {
	r, ok := el.(remote)
	if !ok {
		return style{}
	}
	return style{ref: r.ref()}
}

type style struct {
	ref *nodeRef
}

func (s style) PropertyValue(name string) string {
	if s.ref == nil {
		return ""
	}
	var v string
	_ = s.ref.value("getComputedStyle",
		"function(p) { return getComputedStyle(this).getPropertyValue(p); }", &v, name)
	return v
}

const displayedJS = `function() {
	if (!this.isConnected) return false;
	if (typeof this.checkVisibility === "function") {
		return this.checkVisibility({opacityProperty: false, visibilityProperty: true});
	}
	const s = getComputedStyle(this);
	return s.display !== "none" && s.visibility !== "hidden" && this.getClientRects().length > 0;
}`

// IsElementDisplayed asks the page whether el is rendered and visible.
func (w *Window) IsElementDisplayed(el element.Element) bool {
	r, ok := el.(remote)
	if !ok || r.ref().b != w.b {
		return false
	}
	var shown bool
	_ = r.ref().value("isElementDisplayed", displayedJS, &shown)
	return shown
}
