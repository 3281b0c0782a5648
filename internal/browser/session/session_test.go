// internal/browser/session/session_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/htmldoc"
	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
)

const pageHTML = `<html><body>
<form id="login">
  <input id="user" name="user" value="alice">
  <input id="remember" type="checkbox" checked>
  <button id="go" disabled style="position:absolute; left:10px; top:20px; width:80px; height:30px">Go</button>
</form>
<p class="note">one</p>
<p class="note" style="display:none">two</p>
<div id="host"><template shadowrootmode="open"><span id="inside">shadow</span></template></div>
</body></html>`

// -- Test Helpers --

func newDoc(t *testing.T, src string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(src, htmldoc.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return doc
}

func newContext(t *testing.T, doc *htmldoc.Document) *BrowsingContext {
	t.Helper()
	bc := New(context.Background(), doc.Window(), config.TimeoutsConfig{PollInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	t.Cleanup(bc.Close)
	return bc
}

func findParams(using string, value schemas.Value) schemas.Value {
	return schemas.Map{"using": schemas.String(using), "value": value}
}

func findRef(t *testing.T, bc *BrowsingContext, css string) string {
	t.Helper()
	v, err := bc.FindElement(context.Background(), findParams("css selector", schemas.String(css)))
	require.NoError(t, err)
	ref, ok := v.(schemas.Reference)
	require.True(t, ok, "expected a reference, got %T", v)
	return ref.ID
}

// -- Test Cases --

func TestNew(t *testing.T) {
	doc := newDoc(t, pageHTML)
	bc := New(context.Background(), doc.Window(), config.TimeoutsConfig{Implicit: time.Second}, nil)
	defer bc.Close()

	_, err := uuid.Parse(bc.ID())
	assert.NoError(t, err)
	assert.Equal(t, Timeouts{Implicit: time.Second, PollInterval: element.DefaultPollInterval}, bc.Timeouts())
	assert.Nil(t, bc.Container().ShadowRoot)
}

func TestFindCommands(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))
	ctx := context.Background()

	t.Run("single returns a reference", func(t *testing.T) {
		v, err := bc.FindElement(ctx, findParams("id", schemas.String("user")))
		require.NoError(t, err)
		require.IsType(t, schemas.Reference{}, v)
		assert.True(t, bc.Store().Has(v.(schemas.Reference).ID))
	})

	t.Run("all returns a sequence", func(t *testing.T) {
		v, err := bc.FindElements(ctx, findParams("class name", schemas.String("note")))
		require.NoError(t, err)
		seq, ok := v.(schemas.Sequence)
		require.True(t, ok)
		assert.Len(t, seq, 2)
	})

	t.Run("same element gives the same reference", func(t *testing.T) {
		a := findRef(t, bc, "#user")
		b, err := bc.FindElement(ctx, findParams("xpath", schemas.String("//input[@name='user']")))
		require.NoError(t, err)
		assert.Equal(t, a, b.(schemas.Reference).ID)
	})

	t.Run("empty find-all is an empty sequence", func(t *testing.T) {
		v, err := bc.FindElements(ctx, findParams("tag name", schemas.String("table")))
		require.NoError(t, err)
		assert.Equal(t, schemas.Sequence{}, v)
	})

	t.Run("no such element", func(t *testing.T) {
		_, err := bc.FindElement(ctx, findParams("css selector", schemas.String("#missing")))
		assert.Equal(t, element.CodeNoSuchElement, element.ErrorCode(err))
		assert.EqualError(t, err, "Unable to locate element: #missing")
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := bc.FindElement(ctx, findParams("pixel", schemas.String("x")))
		assert.Equal(t, element.CodeInvalidSelector, element.ErrorCode(err))
	})

	t.Run("malformed parameters", func(t *testing.T) {
		_, err := bc.FindElement(ctx, schemas.String("#user"))
		assert.Equal(t, element.CodeInvalidArgument, element.ErrorCode(err))
	})
}

func TestFindFromElement(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))
	ctx := context.Background()
	form := findRef(t, bc, "#login")

	v, err := bc.FindElementsFromElement(ctx, form, findParams("tag name", schemas.String("input")))
	require.NoError(t, err)
	assert.Len(t, v.(schemas.Sequence), 2)

	_, err = bc.FindElementFromElement(ctx, form, findParams("css selector", schemas.String("p.note")))
	assert.Equal(t, element.CodeNoSuchElement, element.ErrorCode(err), "the search is scoped to the form")

	_, err = bc.FindElementFromElement(ctx, "not-a-reference", findParams("tag name", schemas.String("input")))
	assert.Equal(t, element.CodeNoSuchElement, element.ErrorCode(err))
	var unknown *element.UnknownReferenceError
	assert.ErrorAs(t, err, &unknown)
}

func TestImplicitWait(t *testing.T) {
	doc := newDoc(t, pageHTML)
	bc := newContext(t, doc)
	require.NoError(t, bc.SetTimeouts(schemas.Map{"implicit": schemas.Number(2000)}))

	body := doc.Body().(element.ParentNode)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = doc.AppendHTML(body, `<p id="late">late</p>`)
	}()

	v, err := bc.FindElement(context.Background(), findParams("id", schemas.String("late")))
	require.NoError(t, err)
	assert.IsType(t, schemas.Reference{}, v)
}

func TestCloseAbortsPendingFind(t *testing.T) {
	bc := New(context.Background(), newDoc(t, pageHTML).Window(),
		config.TimeoutsConfig{Implicit: 10 * time.Second, PollInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		_, err := bc.FindElement(context.Background(), findParams("id", schemas.String("never")))
		done <- err
	}()
	time.Sleep(30 * time.Millisecond)
	bc.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("find did not return after Close")
	}
}

func TestSetTimeouts(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))

	require.NoError(t, bc.SetTimeouts(schemas.Map{"implicit": schemas.Number(250), "script": schemas.Number(30000)}))
	assert.Equal(t, 250*time.Millisecond, bc.Timeouts().Implicit)

	require.NoError(t, bc.SetTimeouts(schemas.Map{}))
	assert.Equal(t, 250*time.Millisecond, bc.Timeouts().Implicit, "absent keys leave values unchanged")

	for _, bad := range []schemas.Value{
		schemas.Map{"implicit": schemas.Number(-1)},
		schemas.Map{"implicit": schemas.Number(1.5)},
		schemas.Map{"implicit": schemas.String("10")},
		schemas.Null{},
	} {
		err := bc.SetTimeouts(bad)
		assert.Equal(t, element.CodeInvalidArgument, element.ErrorCode(err), "%v", bad)
	}
	assert.Equal(t, 250*time.Millisecond, bc.Timeouts().Implicit)
}

func TestGetElementAttribute(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))

	tests := []struct {
		css, name string
		want      schemas.Value
	}{
		{"#user", "value", schemas.String("alice")},
		{"#user", "placeholder", schemas.Null{}},
		{"#remember", "checked", schemas.String("true")},
		{"#user", "checked", schemas.Null{}},
		{"#go", "disabled", schemas.String("true")},
		{"#go", "id", schemas.String("go")},
	}
	for _, tt := range tests {
		t.Run(tt.css+"/"+tt.name, func(t *testing.T) {
			got, err := bc.GetElementAttribute(findRef(t, bc, tt.css), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElementState(t *testing.T) {
	doc := newDoc(t, pageHTML)
	bc := newContext(t, doc)

	shown, err := bc.IsElementDisplayed(findRef(t, bc, "p.note"))
	require.NoError(t, err)
	assert.Equal(t, schemas.Bool(true), shown)

	v, err := bc.FindElements(context.Background(), findParams("class name", schemas.String("note")))
	require.NoError(t, err)
	hidden, err := bc.IsElementDisplayed(v.(schemas.Sequence)[1].(schemas.Reference).ID)
	require.NoError(t, err)
	assert.Equal(t, schemas.Bool(false), hidden)

	interactable, err := bc.IsElementInteractable(findRef(t, bc, "#go"))
	require.NoError(t, err)
	assert.Equal(t, schemas.Bool(true), interactable)

	doc.ScrollTo(0, 5)
	rect, err := bc.GetElementRect(findRef(t, bc, "#go"))
	require.NoError(t, err)
	assert.Equal(t, schemas.Map{
		"x":      schemas.Number(10),
		"y":      schemas.Number(20),
		"width":  schemas.Number(80),
		"height": schemas.Number(30),
	}, rect, "the rect is in page coordinates")
}

func TestSwitchToShadowRoot(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))
	ctx := context.Background()
	host := findRef(t, bc, "#host")

	_, err := bc.FindElement(ctx, findParams("id", schemas.String("inside")))
	require.Error(t, err, "shadow content is not visible from the document")

	require.NoError(t, bc.SwitchToShadowRoot(schemas.NewReference(host)))
	require.NotNil(t, bc.Container().ShadowRoot)
	inside, err := bc.FindElement(ctx, findParams("id", schemas.String("inside")))
	require.NoError(t, err)

	require.NoError(t, bc.SwitchToShadowRoot(schemas.Null{}))
	assert.Nil(t, bc.Container().ShadowRoot)
	_, err = bc.IsElementDisplayed(inside.(schemas.Reference).ID)
	assert.Equal(t, element.CodeStaleElementReference, element.ErrorCode(err),
		"shadow elements are stale once the context leaves the shadow root")

	t.Run("element without shadow root", func(t *testing.T) {
		err := bc.SwitchToShadowRoot(schemas.NewReference(findRef(t, bc, "#user")))
		assert.Equal(t, element.CodeNoSuchElement, element.ErrorCode(err))
	})

	t.Run("not a reference", func(t *testing.T) {
		err := bc.SwitchToShadowRoot(schemas.String(host))
		assert.Equal(t, element.CodeInvalidArgument, element.ErrorCode(err))
	})
}

func TestNavigateClearsReferences(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))
	ref := findRef(t, bc, "#user")
	require.NoError(t, bc.SwitchToShadowRoot(schemas.NewReference(findRef(t, bc, "#host"))))

	next := newDoc(t, `<p id="user">new page</p>`)
	bc.Navigate(next.Window())

	assert.Zero(t, bc.Store().Len())
	assert.Nil(t, bc.Container().ShadowRoot)
	_, err := bc.GetElementAttribute(ref, "id")
	var unknown *element.UnknownReferenceError
	assert.ErrorAs(t, err, &unknown)

	fresh := findRef(t, bc, "#user")
	assert.NotEqual(t, ref, fresh)
}

func TestMarshalRoundTrip(t *testing.T) {
	bc := newContext(t, newDoc(t, pageHTML))
	ref := findRef(t, bc, "#user")

	live, err := bc.Unmarshal(schemas.Map{
		"target": schemas.NewReference(ref),
		"list":   schemas.Sequence{schemas.Number(1), schemas.Null{}},
	})
	require.NoError(t, err)

	back, err := bc.Marshal(live)
	require.NoError(t, err)
	m := back.(schemas.Map)
	assert.Equal(t, schemas.NewReference(ref), m["target"])
	assert.Equal(t, schemas.Sequence{schemas.Number(1), schemas.Null{}}, m["list"])
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse(&element.NoSuchElementError{Message: "Unable to locate element: #x"})
	assert.Equal(t, schemas.ErrorResponse{Error: "no such element", Message: "Unable to locate element: #x"}, resp)

	resp = ErrorResponse(context.DeadlineExceeded)
	assert.Equal(t, element.CodeUnknownError, resp.Error)
}
