// internal/browser/cdphost/remote_test.go
package cdphost

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
)

func TestDeclaration(t *testing.T) {
	t.Run("no arguments", func(t *testing.T) {
		decl, err := declaration("function() { return 1; }", nil)
		require.NoError(t, err)
		assert.Equal(t, "function(...nodes) { return (function() { return 1; }).apply(this, nodes.concat([])); }", decl)
	})

	t.Run("plain arguments follow nodes", func(t *testing.T) {
		decl, err := declaration("f", []interface{}{"a'b", 2, true})
		require.NoError(t, err)
		assert.Contains(t, decl, `nodes.concat(["a'b",2,true])`)
	})

	t.Run("unencodable argument", func(t *testing.T) {
		_, err := declaration("f", []interface{}{make(chan int)})
		assert.Error(t, err)
	})
}

func TestExecOptions(t *testing.T) {
	base := len(execOptions(config.BrowserConfig{}))

	cfg := config.BrowserConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		ExecPath:        "/usr/bin/chromium",
		Viewport:        config.ViewportConfig{Width: 800, Height: 600},
		Args:            []string{"--lang=en-US", "--mute-audio"},
	}
	assert.Len(t, execOptions(cfg), base+6)

	// An incomplete viewport adds no window size flag.
	cfg = config.BrowserConfig{Viewport: config.ViewportConfig{Width: 800}}
	assert.Len(t, execOptions(cfg), base)
}

func TestXPathResult(t *testing.T) {
	empty := &xpathResult{}
	assert.Nil(t, empty.SingleNodeValue())
	assert.Nil(t, empty.IterateNext())

	a, b := &nodeRef{backend: 1}, &nodeRef{backend: 2}
	res := &xpathResult{nodes: []element.Node{a, b}}
	assert.Same(t, a, res.SingleNodeValue())
	assert.Same(t, a, res.IterateNext())
	assert.Same(t, b, res.IterateNext())
	assert.Nil(t, res.IterateNext())
}

func TestIsSameNodeAcrossBrowsers(t *testing.T) {
	b1, b2 := newBrowser(t.Context(), zap.NewNop(), 0), newBrowser(t.Context(), zap.NewNop(), 0)
	a := &Element{nodeRef: nodeRef{b: b1, backend: 7}}

	assert.True(t, a.IsSameNode(&Element{nodeRef: nodeRef{b: b1, backend: 7}}))
	assert.False(t, a.IsSameNode(&Element{nodeRef: nodeRef{b: b1, backend: 8}}))
	assert.False(t, a.IsSameNode(&Element{nodeRef: nodeRef{b: b2, backend: 7}}))
	assert.True(t, a.CompareDocumentPosition(&Element{nodeRef: nodeRef{b: b2}}).Has(element.PositionDisconnected))
}

func TestLookupFailuresAreHostErrors(t *testing.T) {
	// A context without a chromedp tab fails every call before it reaches
	// the page.
	b := newBrowser(context.Background(), zaptest.NewLogger(t), 0)
	doc := &Document{nodeRef: nodeRef{b: b, obj: "1", typ: element.DocumentNode}}

	lookups := map[string]func() error{
		"getElementsByTagName": func() error {
			_, err := doc.GetElementsByTagName("a")
			return err
		},
		"getElementsByClassName": func() error {
			_, err := doc.GetElementsByClassName("item")
			return err
		},
		"getElementById": func() error {
			_, err := doc.GetElementByID("x")
			return err
		},
		"getElementsByName": func() error {
			_, err := doc.GetElementsByName("q")
			return err
		},
	}
	for op, lookup := range lookups {
		t.Run(op, func(t *testing.T) {
			err := lookup()
			var host *element.HostError
			require.ErrorAs(t, err, &host)
			assert.Equal(t, op, host.Op)
			assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
		})
	}

	t.Run("find reports an unknown error", func(t *testing.T) {
		c := element.Container{Window: b.Window()}
		_, err := element.Find(t.Context(), c, element.TagName, element.Expression("a"),
			element.FindOptions{StartNode: doc})
		var host *element.HostError
		require.ErrorAs(t, err, &host)
		var ise *element.InvalidSelectorError
		assert.False(t, errors.As(err, &ise))
		assert.Equal(t, element.CodeUnknownError, element.ErrorCode(err))
	})
}
