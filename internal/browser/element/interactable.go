// File: internal/browser/element/interactable.go
package element

import (
	"math"
	"reflect"
	"strings"
)

// Coordinates returns the viewport point at offset (x, y) from the top-left
// corner of el's bounding box. A nil offset means the centre on that axis.
func Coordinates(el Element, x, y interface{}) (Point, error) {
	box := el.BoundingClientRect()

	xOff, err := offset("x", x, box.Width/2)
	if err != nil {
		return Point{}, err
	}
	yOff, err := offset("y", y, box.Height/2)
	if err != nil {
		return Point{}, err
	}
	return Point{X: box.Left() + xOff, Y: box.Top() + yOff}, nil
}

func offset(axis string, v interface{}, fallback float64) (float64, error) {
	if v == nil {
		return fallback, nil
	}
	rv := reflect.ValueOf(v)
	var f float64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f = float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	case reflect.Pointer:
		if rv.IsNil() {
			return fallback, nil
		}
		return offset(axis, rv.Elem().Interface(), fallback)
	default:
		return 0, &OffsetTypeError{Axis: axis, Value: v}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &OffsetTypeError{Axis: axis, Value: v}
	}
	return f, nil
}

// windowOf returns the window owning el, or nil for orphaned nodes.
func windowOf(el Element) Window {
	doc := el.OwnerDocument()
	if doc == nil {
		return nil
	}
	return doc.DefaultView()
}

// InViewport reports whether the point at offset (x, y) of el lies inside
// the visible viewport.
func InViewport(el Element, x, y interface{}) (bool, error) {
	win := windowOf(el)
	if win == nil {
		return false, nil
	}
	c, err := Coordinates(el, x, y)
	if err != nil {
		return false, err
	}

	left, top := win.PageXOffset(), win.PageYOffset()
	right, bottom := left+win.InnerWidth(), top+win.InnerHeight()
	px, py := c.X+left, c.Y+top

	return left <= px && px <= right && top <= py && py <= bottom, nil
}

// IsVisible reports whether el is displayed and its point at (x, y) can be
// brought into view. An element outside the viewport is scrolled into view
// once before its centre is checked again; one that cannot scroll is not
// visible.
func IsVisible(el Element, x, y interface{}) (bool, error) {
	win := windowOf(el)
	if win == nil {
		return false, nil
	}
	if !IsXULElement(el) && !win.IsElementDisplayed(el) {
		return false, nil
	}
	if strings.EqualFold(el.TagName(), "body") {
		return true, nil
	}

	in, err := InViewport(el, x, y)
	if err != nil || in {
		return in, err
	}
	s, ok := el.(Scroller)
	if !ok {
		return false, nil
	}
	if err := s.ScrollIntoView(); err != nil {
		return false, err
	}
	return InViewport(el, nil, nil)
}

// IsInteractable reports whether el can receive pointer or keyboard input.
func IsInteractable(el Element) bool {
	return IsPointerInteractable(el) || IsKeyboardInteractable(el)
}

// IsPointerInteractable reports whether any element is hit at el's in-view
// centre point.
func IsPointerInteractable(el Element) bool {
	return len(InteractableElementTree(el)) > 0
}

// IsKeyboardInteractable always reports true; focusability is not modelled.
func IsKeyboardInteractable(Element) bool {
	return true
}

// InViewCentrePoint returns the centre of the part of rect that lies inside
// the viewport of win.
func InViewCentrePoint(rect Rect, win Window) Point {
	left := math.Max(0, math.Min(rect.X, rect.X+rect.Width))
	right := math.Min(win.InnerWidth(), math.Max(rect.X, rect.X+rect.Width))
	top := math.Max(0, math.Min(rect.Y, rect.Y+rect.Height))
	bottom := math.Min(win.InnerHeight(), math.Max(rect.Y, rect.Y+rect.Height))

	return Point{X: (left + right) / 2, Y: (top + bottom) / 2}
}

// InteractableElementTree returns the fully opaque elements painted at el's
// in-view centre point, topmost first.
func InteractableElementTree(el Element) []Element {
	win := windowOf(el)
	if win == nil {
		return nil
	}
	rect := el.BoundingClientRect()
	if rect.Width == 0 && rect.Height == 0 {
		return nil
	}

	centre := InViewCentrePoint(rect, win)
	hits := win.Document().ElementsFromPoint(centre.X, centre.Y)

	tree := make([]Element, 0, len(hits))
	for _, hit := range hits {
		if win.ComputedStyle(hit).PropertyValue("opacity") == "1" {
			tree = append(tree, hit)
		}
	}
	return tree
}
