package element_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/htmldoc"
)

// -- Test Helpers --

func newDoc(t *testing.T, src string, opts ...htmldoc.Option) *htmldoc.Document {
	t.Helper()
	opts = append(opts, htmldoc.WithLogger(zaptest.NewLogger(t)))
	doc, err := htmldoc.ParseString(src, opts...)
	require.NoError(t, err)
	return doc
}

func newStore(t *testing.T) *element.Store {
	t.Helper()
	return element.NewStore(zaptest.NewLogger(t))
}

// must unwraps lookups that cannot fail on the in-memory host.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func containerOf(doc *htmldoc.Document) element.Container {
	return element.Container{Window: doc.Window()}
}

func mustByID(t *testing.T, doc *htmldoc.Document, id string) element.Element {
	t.Helper()
	el := must(doc.GetElementByID(id))
	require.NotNil(t, el, "test setup: #%s not found", id)
	return el
}

func shadowOf(t *testing.T, host element.Element) element.ShadowRoot {
	t.Helper()
	sh, ok := host.(element.ShadowHost)
	require.True(t, ok)
	sr, err := sh.ShadowRoot()
	require.NoError(t, err)
	return sr
}

func idOf(el element.Element) string {
	id, _ := el.GetAttribute("id")
	return id
}

func idsOf(els []element.Element) []string {
	out := make([]string, 0, len(els))
	for _, el := range els {
		out = append(out, idOf(el))
	}
	return out
}

func mustAdd(t *testing.T, store *element.Store, el element.Element) string {
	t.Helper()
	ref, err := store.Add(el)
	require.NoError(t, err)
	return ref
}
