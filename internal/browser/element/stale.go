// File: internal/browser/element/stale.go
package element

// IsDisconnected reports whether el is detached from the tree it is expected
// to live in. With a shadow root in the container, el is first compared
// against that shadow root; then each enclosing shadow tree is checked in
// turn, host by host, until the document itself is reached.
func IsDisconnected(el Node, c Container) bool {
	if c.ShadowRoot == nil {
		if c.Window == nil {
			return true
		}
		doc := c.Window.Document()
		if doc == nil {
			return true
		}
		docEl := doc.DocumentElement()
		if docEl == nil {
			return true
		}
		return el.CompareDocumentPosition(docEl).Has(PositionDisconnected)
	}

	if el.CompareDocumentPosition(c.ShadowRoot).Has(PositionDisconnected) {
		return true
	}

	host := c.ShadowRoot.Host()
	if host == nil {
		return true
	}
	return IsDisconnected(host, Container{
		Window:     c.Window,
		ShadowRoot: enclosingShadowRoot(host),
	})
}

// enclosingShadowRoot walks up from n and returns the shadow root of the tree
// containing it, or nil when that tree is the document.
func enclosingShadowRoot(n Node) ShadowRoot {
	var last Node = n
	for p := n.ParentNode(); p != nil; p = p.ParentNode() {
		last = p
	}
	if sr, ok := last.(ShadowRoot); ok && last.NodeType() == DocumentFragmentNode {
		return sr
	}
	return nil
}
