package element_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/htmldoc"
)

// fakeBag is a PropertyBag with per-key failures.
type fakeBag struct {
	keys  []string
	props map[string]interface{}
	errs  map[string]error
}

func (b *fakeBag) Keys() []string { return b.keys }

func (b *fakeBag) Property(key string) (interface{}, error) {
	if err, ok := b.errs[key]; ok {
		return nil, err
	}
	return b.props[key], nil
}

func TestToWireRoundTrip(t *testing.T) {
	doc := newDoc(t, storeHTML)
	store := newStore(t)
	c := containerOf(doc)
	a, b := mustByID(t, doc, "a"), mustByID(t, doc, "b")

	type point struct {
		X      int    `json:"x"`
		Label  string `json:"label,omitempty"`
		Hidden string `json:"-"`
		Target element.Element
	}

	live := map[string]interface{}{
		"none":   nil,
		"flag":   true,
		"count":  3,
		"ratio":  0.5,
		"text":   "hi",
		"one":    a,
		"many":   []element.Element{a, b},
		"nested": []interface{}{"x", map[string]interface{}{"el": b}},
		"point":  point{X: 1, Label: "p", Hidden: "secret", Target: a},
	}

	w, err := element.ToWire(live, store)
	require.NoError(t, err)

	refA, refB := mustAdd(t, store, a), mustAdd(t, store, b)
	want := schemas.Map{
		"none":  schemas.Null{},
		"flag":  schemas.Bool(true),
		"count": schemas.Number(3),
		"ratio": schemas.Number(0.5),
		"text":  schemas.String("hi"),
		"one":   schemas.NewReference(refA),
		"many":  schemas.Sequence{schemas.NewReference(refA), schemas.NewReference(refB)},
		"nested": schemas.Sequence{
			schemas.String("x"),
			schemas.Map{"el": schemas.NewReference(refB)},
		},
		"point": schemas.Map{
			"x":      schemas.Number(1),
			"label":  schemas.String("p"),
			"Target": schemas.NewReference(refA),
		},
	}
	if diff := cmp.Diff(want, w); diff != "" {
		t.Fatalf("ToWire mismatch (-want +got):\n%s", diff)
	}

	back, err := element.FromWire(w, store, c)
	require.NoError(t, err)
	m, ok := back.(map[string]interface{})
	require.True(t, ok)

	assert.Nil(t, m["none"])
	assert.Equal(t, true, m["flag"])
	assert.Equal(t, 3.0, m["count"])
	assert.Equal(t, "hi", m["text"])

	one, ok := m["one"].(element.Element)
	require.True(t, ok)
	assert.True(t, one.IsSameNode(a))

	many, ok := m["many"].([]interface{})
	require.True(t, ok)
	require.Len(t, many, 2)
	assert.True(t, many[1].(element.Element).IsSameNode(b))
}

func TestToWireThroughJSON(t *testing.T) {
	doc := newDoc(t, storeHTML)
	store := newStore(t)
	a := mustByID(t, doc, "a")

	w, err := element.ToWire([]interface{}{a, "x"}, store)
	require.NoError(t, err)
	raw, err := schemas.Encode(w)
	require.NoError(t, err)

	decoded, err := schemas.Decode(raw)
	require.NoError(t, err)
	back, err := element.FromWire(decoded, store, containerOf(doc))
	require.NoError(t, err)

	items := back.([]interface{})
	require.Len(t, items, 2)
	assert.True(t, items[0].(element.Element).IsSameNode(a))
	assert.Equal(t, "x", items[1])
}

func TestToWireNilElements(t *testing.T) {
	store := newStore(t)

	var none *struct{ element.Element }
	w, err := element.ToWire(none, store)
	require.NoError(t, err)
	assert.Equal(t, schemas.Null{}, w)

	w, err = element.ToWire([]int(nil), store)
	require.NoError(t, err)
	assert.Equal(t, schemas.Sequence{}, w)
	assert.Zero(t, store.Len())

	w, err = element.ToWire([]element.Element{nil, (*htmldoc.Element)(nil)}, store)
	require.NoError(t, err)
	assert.Equal(t, schemas.Sequence{schemas.Null{}, schemas.Null{}}, w)
	assert.Zero(t, store.Len())

	doc := newDoc(t, `<html><body><p id="p">x</p></body></html>`)
	w, err = element.ToWire([]element.Element{nil, mustByID(t, doc, "p")}, store)
	require.NoError(t, err)
	seq, ok := w.(schemas.Sequence)
	require.True(t, ok)
	require.Len(t, seq, 2)
	assert.Equal(t, schemas.Null{}, seq[0])
	assert.IsType(t, schemas.Reference{}, seq[1])
	assert.Equal(t, 1, store.Len())
}

func TestToWireSkipsUnimplementedProperties(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := element.NewStore(zap.New(core))

	bag := &fakeBag{
		keys:  []string{"kept", "missing", "other"},
		props: map[string]interface{}{"kept": 1, "other": "o"},
		errs:  map[string]error{"missing": element.ErrNotImplemented},
	}
	w, err := element.ToWire(bag, store)
	require.NoError(t, err)
	assert.Equal(t, schemas.Map{"kept": schemas.Number(1), "other": schemas.String("o")}, w)

	skipped := logs.FilterMessage("Skipping unimplemented property.").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "missing", skipped[0].ContextMap()["property"])
	assert.Equal(t, "element_store", skipped[0].LoggerName)
}

func TestToWireErrors(t *testing.T) {
	store := newStore(t)
	boom := errors.New("getter failed")

	tests := []struct {
		name  string
		value interface{}
		is    error
	}{
		{"NaN", math.NaN(), element.ErrUnsupportedValue},
		{"infinity in a list", []float64{1, math.Inf(1)}, element.ErrUnsupportedValue},
		{"channel", make(chan int), element.ErrUnsupportedValue},
		{"function", func() {}, element.ErrUnsupportedValue},
		{"non-string map keys", map[int]string{1: "a"}, element.ErrUnsupportedValue},
		{"failing property", &fakeBag{keys: []string{"k"}, errs: map[string]error{"k": boom}}, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := element.ToWire(tt.value, store)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestFromWireReferenceErrors(t *testing.T) {
	doc := newDoc(t, storeHTML)
	store := newStore(t)
	c := containerOf(doc)

	_, err := element.FromWire(schemas.NewReference("not-issued"), store, c)
	var unknown *element.UnknownReferenceError
	assert.ErrorAs(t, err, &unknown)

	b := mustByID(t, doc, "b")
	ref := mustAdd(t, store, b)
	require.NoError(t, doc.Remove(b))

	_, err = element.FromWire(schemas.Map{"k": schemas.Sequence{schemas.NewReference(ref)}}, store, c)
	var stale *element.StaleElementReferenceError
	assert.ErrorAs(t, err, &stale, "stale references are reported from nested positions")
}

func TestMakeWebElement(t *testing.T) {
	raw, err := schemas.Encode(element.MakeWebElement("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"element-6066-11e4-a52e-4f735466cecf":"abc","ELEMENT":"abc"}`, string(raw))
}
