package element_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/htmldoc"
)

const interactHTML = `<html><body>
	<div id="a" style="left:10px;top:20px;width:100px;height:50px"></div>
	<div id="cover" style="left:50px;top:30px;width:100px;height:100px;z-index:5"></div>
	<div id="ghost" style="left:300px;top:300px;width:20px;height:20px;opacity:0.5"></div>
	<div id="empty" style="left:400px;top:400px;width:0;height:0"></div>
	<div id="none" style="display:none;left:10px;top:10px;width:10px;height:10px"></div>
	<div id="below" style="left:20px;top:1500px;width:40px;height:40px"></div>
	<div id="wide" style="left:-50px;top:10px;width:100px;height:20px"></div>
</body></html>`

func TestCoordinates(t *testing.T) {
	doc := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))
	a := mustByID(t, doc, "a")

	p, err := element.Coordinates(a, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, element.Point{X: 60, Y: 45}, p)

	p, err = element.Coordinates(a, 5, 7.5)
	require.NoError(t, err)
	assert.Equal(t, element.Point{X: 15, Y: 27.5}, p)

	for _, bad := range []interface{}{"5", true, math.NaN(), math.Inf(-1)} {
		_, err := element.Coordinates(a, bad, nil)
		var offErr *element.OffsetTypeError
		require.ErrorAs(t, err, &offErr, "offset %v", bad)
		assert.Equal(t, "x", offErr.Axis)
		assert.Equal(t, element.CodeInvalidArgument, element.ErrorCode(err))
	}

	_, err = element.Coordinates(a, 0, "top")
	var offErr *element.OffsetTypeError
	require.ErrorAs(t, err, &offErr)
	assert.Equal(t, "y", offErr.Axis)
}

func TestInViewport(t *testing.T) {
	doc := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))

	in, err := element.InViewport(mustByID(t, doc, "a"), nil, nil)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = element.InViewport(mustByID(t, doc, "below"), nil, nil)
	require.NoError(t, err)
	assert.False(t, in)

	in, err = element.InViewport(mustByID(t, doc, "a"), 0, 0)
	require.NoError(t, err)
	assert.True(t, in, "the viewport edges are inclusive")
}

func TestIsVisible(t *testing.T) {
	doc := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))

	visible, err := element.IsVisible(mustByID(t, doc, "a"), nil, nil)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = element.IsVisible(mustByID(t, doc, "none"), nil, nil)
	require.NoError(t, err)
	assert.False(t, visible)

	visible, err = element.IsVisible(doc.Body(), nil, nil)
	require.NoError(t, err)
	assert.True(t, visible)

	t.Run("scrolls out-of-view elements into view", func(t *testing.T) {
		below := mustByID(t, doc, "below")
		visible, err := element.IsVisible(below, nil, nil)
		require.NoError(t, err)
		assert.True(t, visible)
		assert.Equal(t, 1500.0, doc.Window().PageYOffset())
	})

	t.Run("element that cannot scroll stays hidden", func(t *testing.T) {
		fresh := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))
		a := pinnedElement(fresh, mustByID(t, fresh, "a"))
		_, canScroll := a.(element.Scroller)
		require.False(t, canScroll)

		in, err := element.InViewport(a, 5000, 0)
		require.NoError(t, err)
		require.False(t, in)

		visible, err := element.IsVisible(a, 5000, 0)
		require.NoError(t, err)
		assert.False(t, visible)

		visible, err = element.IsVisible(a, nil, nil)
		require.NoError(t, err)
		assert.True(t, visible, "an element already in view needs no scrolling")
	})
}

// pinned hides every optional capability of the wrapped element, including
// Scroller. Its document reports the wrapper as displayed, since the host only
// recognises its own element values.
type pinned struct {
	element.Element
	doc element.Document
}

func (p pinned) OwnerDocument() element.Document { return p.doc }

type pinnedDocument struct {
	element.Document
	win element.Window
}

func (d pinnedDocument) DefaultView() element.Window { return d.win }

type pinnedWindow struct{ element.Window }

func (pinnedWindow) IsElementDisplayed(element.Element) bool { return true }

func pinnedElement(doc *htmldoc.Document, el element.Element) element.Element {
	return pinned{
		Element: el,
		doc:     pinnedDocument{Document: doc, win: pinnedWindow{Window: doc.Window()}},
	}
}

func TestInViewCentrePoint(t *testing.T) {
	doc := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))
	win := doc.Window()

	tests := []struct {
		name     string
		rect     element.Rect
		expected element.Point
	}{
		{"inside", element.Rect{X: 10, Y: 20, Width: 100, Height: 50}, element.Point{X: 60, Y: 45}},
		{"clipped left", element.Rect{X: -50, Y: 10, Width: 100, Height: 20}, element.Point{X: 25, Y: 20}},
		{"clipped bottom right", element.Rect{X: 700, Y: 500, Width: 200, Height: 200}, element.Point{X: 750, Y: 550}},
		{"negative size", element.Rect{X: 110, Y: 70, Width: -100, Height: -50}, element.Point{X: 60, Y: 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, element.InViewCentrePoint(tt.rect, win))
		})
	}
}

func TestInteractableElementTree(t *testing.T) {
	doc := newDoc(t, interactHTML, htmldoc.WithViewport(800, 600))

	t.Run("covered element", func(t *testing.T) {
		tree := element.InteractableElementTree(mustByID(t, doc, "a"))
		require.NotEmpty(t, tree)
		assert.Equal(t, []string{"cover", "a", "", ""}, idsOf(tree))
	})

	t.Run("clipped element uses the in-view centre", func(t *testing.T) {
		tree := element.InteractableElementTree(mustByID(t, doc, "wide"))
		require.NotEmpty(t, tree)
		assert.Equal(t, "wide", idOf(tree[0]))
	})

	t.Run("translucent element is left out", func(t *testing.T) {
		tree := element.InteractableElementTree(mustByID(t, doc, "ghost"))
		for _, el := range tree {
			assert.NotEqual(t, "ghost", idOf(el))
		}
		assert.NotEmpty(t, tree, "the opaque body below still counts")
	})

	t.Run("element without size", func(t *testing.T) {
		empty := mustByID(t, doc, "empty")
		assert.Nil(t, element.InteractableElementTree(empty))
		assert.False(t, element.IsPointerInteractable(empty))
		assert.True(t, element.IsKeyboardInteractable(empty))
		assert.True(t, element.IsInteractable(empty))
	})

	t.Run("pointer interactable", func(t *testing.T) {
		assert.True(t, element.IsPointerInteractable(mustByID(t, doc, "a")))
	})
}
