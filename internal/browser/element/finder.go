// File: internal/browser/element/finder.go
package element

import (
	"errors"
	"fmt"
	"strings"
)

var errNoAnonymousContent = errors.New("document does not expose anonymous content")

// findOne locates the first element matching pattern under start. A nil
// element with a nil error means nothing matched.
func findOne(strategy Strategy, pattern Pattern, root, start ParentNode) (Element, error) {
	switch strategy {
	case ID:
		if lookup, ok := start.(IDLookup); ok {
			return lookup.GetElementByID(pattern.Expr)
		}
		return findByXPath(root, start, ".//*[@id="+quoteXPath(pattern.Expr)+"]")

	case Name:
		els, err := findAll(strategy, pattern, root, start)
		if err != nil || len(els) == 0 {
			return nil, err
		}
		return els[0], nil

	case ClassName:
		return first(start.GetElementsByClassName(pattern.Expr))

	case TagName:
		return first(start.GetElementsByTagName(pattern.Expr))

	case XPath:
		return findByXPath(root, start, pattern.Expr)

	case LinkText, PartialLinkText:
		links, err := start.GetElementsByTagName("a")
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if matchLinkText(strategy, link, pattern.Expr) {
				return link, nil
			}
		}
		return nil, nil

	case Selector:
		return start.QuerySelector(pattern.Expr)

	case Anon:
		els, err := findAll(strategy, pattern, root, start)
		if err != nil || len(els) == 0 {
			return nil, err
		}
		return els[0], nil

	case AnonAttribute:
		anon, host, err := anonymousContext(root, start)
		if err != nil {
			return nil, err
		}
		name, value, err := pattern.single()
		if err != nil {
			return nil, err
		}
		return anon.AnonymousElementByAttribute(host, name, value)
	}

	return nil, NewInvalidSelectorError("No such strategy: %s", strategy)
}

// findAll locates every element matching pattern under start, in document order.
func findAll(strategy Strategy, pattern Pattern, root, start ParentNode) ([]Element, error) {
	switch strategy {
	case ID:
		return findByXPathAll(root, start, ".//*[@id="+quoteXPath(pattern.Expr)+"]")

	case Name:
		if lookup, ok := start.(NameLookup); ok {
			return lookup.GetElementsByName(pattern.Expr)
		}
		return findByXPathAll(root, start, ".//*[@name="+quoteXPath(pattern.Expr)+"]")

	case ClassName:
		return start.GetElementsByClassName(pattern.Expr)

	case TagName:
		return start.GetElementsByTagName(pattern.Expr)

	case XPath:
		return findByXPathAll(root, start, pattern.Expr)

	case LinkText, PartialLinkText:
		links, err := start.GetElementsByTagName("a")
		if err != nil {
			return nil, err
		}
		var found []Element
		for _, link := range links {
			if matchLinkText(strategy, link, pattern.Expr) {
				found = append(found, link)
			}
		}
		return found, nil

	case Selector:
		return start.QuerySelectorAll(pattern.Expr)

	case Anon:
		anon, host, err := anonymousContext(root, start)
		if err != nil {
			return nil, err
		}
		return anon.AnonymousNodes(host)

	case AnonAttribute:
		el, err := findOne(strategy, pattern, root, start)
		if err != nil || el == nil {
			return nil, err
		}
		return []Element{el}, nil
	}

	return nil, NewInvalidSelectorError("No such strategy: %s", strategy)
}

func matchLinkText(strategy Strategy, link Element, text string) bool {
	visible := link.Text()
	if strategy == PartialLinkText {
		return strings.Contains(visible, text)
	}
	return visible == text
}

func first(els []Element, err error) (Element, error) {
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// evaluatorFor returns the XPath evaluator for root. Shadow roots do not
// evaluate XPath themselves, so their owner document is used instead.
func evaluatorFor(root ParentNode) (XPathEvaluator, error) {
	if ev, ok := root.(XPathEvaluator); ok {
		return ev, nil
	}
	if doc := root.OwnerDocument(); doc != nil {
		return doc, nil
	}
	return nil, errors.New("no XPath evaluator for search root")
}

func findByXPath(root, start ParentNode, expr string) (Element, error) {
	ev, err := evaluatorFor(root)
	if err != nil {
		return nil, err
	}
	res, err := ev.Evaluate(expr, start, FirstOrderedNodeType)
	if err != nil {
		return nil, err
	}
	n := res.SingleNodeValue()
	if n == nil {
		return nil, nil
	}
	return asElement(n)
}

func findByXPathAll(root, start ParentNode, expr string) ([]Element, error) {
	ev, err := evaluatorFor(root)
	if err != nil {
		return nil, err
	}
	res, err := ev.Evaluate(expr, start, OrderedNodeIteratorType)
	if err != nil {
		return nil, err
	}
	var els []Element
	for n := res.IterateNext(); n != nil; n = res.IterateNext() {
		el, err := asElement(n)
		if err != nil {
			return nil, err
		}
		els = append(els, el)
	}
	return els, nil
}

func asElement(n Node) (Element, error) {
	if el, ok := n.(Element); ok && n.NodeType() == ElementNode {
		return el, nil
	}
	return nil, fmt.Errorf("expression selected a node of type %d, not an element", int(n.NodeType()))
}

// anonymousContext returns the anonymous content capability of root's
// document together with the element whose anonymous children are wanted.
func anonymousContext(root, start ParentNode) (AnonymousContent, Element, error) {
	var doc Node = root
	if _, isDoc := root.(Document); !isDoc {
		if owner := root.OwnerDocument(); owner != nil {
			doc = owner
		}
	}
	anon, ok := doc.(AnonymousContent)
	if !ok {
		return nil, nil, errNoAnonymousContent
	}
	host, ok := start.(Element)
	if !ok {
		if d, isDoc := start.(Document); isDoc {
			host = d.DocumentElement()
		}
	}
	if host == nil {
		return nil, nil, errors.New("anonymous lookup requires an element start node")
	}
	return anon, host, nil
}
