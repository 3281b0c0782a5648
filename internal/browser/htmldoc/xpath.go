// File: internal/browser/htmldoc/xpath.go
package htmldoc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// navigator is an xpath.NodeNavigator whose root is the whole tree while its
// starting position is the context node, so absolute paths search the whole
// tree and relative paths search below the context node.
type navigator struct {
	root, curr *html.Node
	attr       int
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func navigable(n *html.Node) bool {
	return n.Type != html.DoctypeNode
}

func (h *navigator) NodeType() xpath.NodeType {
	switch h.curr.Type {
	case html.CommentNode:
		return xpath.CommentNode
	case html.TextNode:
		return xpath.TextNode
	case html.ElementNode:
		if h.attr != -1 {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	default:
		return xpath.RootNode
	}
}

func (h *navigator) LocalName() string {
	if h.attr != -1 {
		return h.curr.Attr[h.attr].Key
	}
	return h.curr.Data
}

func (*navigator) Prefix() string { return "" }

func (h *navigator) Value() string {
	switch h.curr.Type {
	case html.CommentNode, html.TextNode:
		return h.curr.Data
	case html.ElementNode:
		if h.attr != -1 {
			return h.curr.Attr[h.attr].Val
		}
	}
	return htmlquery.InnerText(h.curr)
}

func (h *navigator) Copy() xpath.NodeNavigator {
	n := *h
	return &n
}

func (h *navigator) MoveToRoot() {
	h.curr, h.attr = h.root, -1
}

func (h *navigator) MoveToParent() bool {
	if h.attr != -1 {
		h.attr = -1
		return true
	}
	if h.curr == h.root || h.curr.Parent == nil {
		return false
	}
	h.curr = h.curr.Parent
	return true
}

func (h *navigator) MoveToNextAttribute() bool {
	if h.attr >= len(h.curr.Attr)-1 {
		return false
	}
	h.attr++
	return true
}

func (h *navigator) MoveToChild() bool {
	if h.attr != -1 {
		return false
	}
	for c := h.curr.FirstChild; c != nil; c = c.NextSibling {
		if navigable(c) {
			h.curr = c
			return true
		}
	}
	return false
}

func (h *navigator) MoveToFirst() bool {
	if h.attr != -1 || h.curr.Parent == nil || h.curr == h.root {
		return false
	}
	for c := h.curr.Parent.FirstChild; c != nil; c = c.NextSibling {
		if navigable(c) {
			h.curr = c
			return true
		}
	}
	return false
}

func (h *navigator) MoveToNext() bool {
	if h.attr != -1 || h.curr == h.root {
		return false
	}
	for s := h.curr.NextSibling; s != nil; s = s.NextSibling {
		if navigable(s) {
			h.curr = s
			return true
		}
	}
	return false
}

func (h *navigator) MoveToPrevious() bool {
	if h.attr != -1 || h.curr == h.root {
		return false
	}
	for s := h.curr.PrevSibling; s != nil; s = s.PrevSibling {
		if navigable(s) {
			h.curr = s
			return true
		}
	}
	return false
}

func (h *navigator) MoveTo(other xpath.NodeNavigator) bool {
	node, ok := other.(*navigator)
	if !ok || node.root != h.root {
		return false
	}
	h.curr, h.attr = node.curr, node.attr
	return true
}

// xpathResult holds nodes in document order.
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

// Evaluate runs an XPath expression with contextNode as the context. Only
// node-set expressions are accepted. The result is ordered by document
// position regardless of resultType.
func (d *Document) Evaluate(expr string, contextNode element.Node, resultType element.XPathResultType) (res element.XPathResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("xpath evaluation failed: %v", r)
		}
	}()

	start, err := d.nodeOf(contextNode)
	if err != nil {
		return nil, err
	}
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	root := treeRoot(start)
	iter, ok := compiled.Evaluate(&navigator{root: root, curr: start, attr: -1}).(*xpath.NodeIterator)
	if !ok {
		return nil, fmt.Errorf("expression %q does not evaluate to a node-set", expr)
	}

	type hit struct {
		n    *html.Node
		attr int
	}
	var hits []hit
	seen := make(map[hit]bool)
	for iter.MoveNext() {
		nav := iter.Current().(*navigator)
		h := hit{n: nav.curr, attr: nav.attr}
		if !seen[h] {
			seen[h] = true
			hits = append(hits, h)
		}
	}

	pos := order(root)
	sort.SliceStable(hits, func(i, j int) bool {
		if pos[hits[i].n] != pos[hits[j].n] {
			return pos[hits[i].n] < pos[hits[j].n]
		}
		return hits[i].attr < hits[j].attr
	})

	nodes := make([]element.Node, 0, len(hits))
	for _, h := range hits {
		if h.attr != -1 {
			nodes = append(nodes, &Node{doc: d, n: h.n, typ: attributeNode, attr: h.n.Attr[h.attr].Key})
			continue
		}
		nodes = append(nodes, d.wrap(h.n))
	}
	if resultType == element.FirstOrderedNodeType && len(nodes) > 1 {
		nodes = nodes[:1]
	}
	return &xpathResult{nodes: nodes}, nil
}

// XPathOf returns an XPath locating el, anchored on the nearest ancestor with
// an id when there is one. Paths of nodes inside a shadow tree are relative
// to the shadow root.
func (d *Document) XPathOf(el element.Node) string {
	n, err := d.nodeOf(el)
	if err != nil {
		return ""
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var path []string
	for cur := n; cur != nil && cur.Type != html.DocumentNode; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(cur.Data)
		if id, ok := attr(cur, "id"); ok && id != "" {
			path = append(path, "//*[@id="+xpathLiteral(id)+"]")
			break
		}

		index := 1
		for prev := cur.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.EqualFold(prev.Data, tag) {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	out := strings.Join(path, "/")
	if !strings.HasPrefix(out, "//") {
		out = "/" + out
	}
	return out
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
