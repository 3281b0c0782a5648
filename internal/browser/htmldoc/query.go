// File: internal/browser/htmldoc/query.go
package htmldoc

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// walk visits the element descendants of n in document order, stopping early
// when fn returns false. Shadow trees are separate trees and are not entered.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !fn(c) {
			return false
		}
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func collect(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) bool {
		if match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

func first(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func (d *Document) elementsByTagName(n *html.Node, name string) []element.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElements(collect(n, func(c *html.Node) bool {
		return name == "*" || strings.EqualFold(c.Data, name)
	}))
}

func (d *Document) elementsByClassName(n *html.Node, names string) []element.Element {
	wanted := strings.Fields(names)
	if len(wanted) == 0 {
		return []element.Element{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElements(collect(n, func(c *html.Node) bool {
		class, ok := attr(c, "class")
		if !ok {
			return false
		}
		have := strings.Fields(class)
		for _, w := range wanted {
			found := false
			for _, h := range have {
				if h == w {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}))
}

func (d *Document) elementByID(n *html.Node, id string) element.Element {
	if id == "" {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElement(first(n, func(c *html.Node) bool {
		v, ok := attr(c, "id")
		return ok && v == id
	}))
}

func (d *Document) querySelector(n *html.Node, selector string) (element.Element, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElement(cascadia.Query(n, sel)), nil
}

func (d *Document) querySelectorAll(n *html.Node, selector string) ([]element.Element, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapElements(cascadia.QueryAll(n, sel)), nil
}

// --- tree position ---

func treeRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func contains(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// precedes reports whether a comes before b in a preorder walk of their
// shared tree.
func precedes(a, b *html.Node) bool {
	var seenA, done bool
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n; c != nil && !done; c = c.NextSibling {
			switch c {
			case a:
				seenA, done = true, true
				return
			case b:
				done = true
				return
			}
			visit(c.FirstChild)
		}
	}
	visit(treeRoot(a))
	return seenA
}

// comparePosition implements Node.compareDocumentPosition for reference
// node n. Nodes in different trees, including across a shadow boundary,
// are disconnected.
func (d *Document) comparePosition(n *html.Node, other element.Node) element.DocumentPosition {
	o, err := d.nodeOf(other)
	if err != nil {
		return element.PositionDisconnected | element.PositionImplementationSpecific | element.PositionFollowing
	}
	if a, ok := other.(*Node); ok && a.typ == attributeNode {
		// Attributes are positioned at their owner element.
		o = a.n
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case o == n:
		return 0
	case treeRoot(o) != treeRoot(n):
		return element.PositionDisconnected | element.PositionImplementationSpecific | element.PositionFollowing
	case contains(o, n):
		return element.PositionContains | element.PositionPreceding
	case contains(n, o):
		return element.PositionContainedBy | element.PositionFollowing
	case precedes(o, n):
		return element.PositionPreceding
	default:
		return element.PositionFollowing
	}
}

// order returns the preorder index of every node under root.
func order(root *html.Node) map[*html.Node]int {
	idx := make(map[*html.Node]int)
	i := 0
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		idx[n] = i
		i++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return idx
}
