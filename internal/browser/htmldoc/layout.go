// File: internal/browser/htmldoc/layout.go
package htmldoc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/parser"
)

// Layout model: every element is absolutely positioned
// by its inline or style sheet left/top/width/height, in px, relative to its
// parent's box. html and body fill the viewport unless sized explicitly.

var nonRendered = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
}

var blockLevel = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Div: true, atom.P: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Main: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Form: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

var inherited = map[string]bool{
	"visibility":     true,
	"pointer-events": true,
}

type styleRule struct {
	sel   cascadia.Sel
	spec  cascadia.Specificity
	order int
	decls []parser.Declaration
}

// compileStyles rebuilds the style rules of every tree from its <style>
// elements. Callers hold the write lock or own d exclusively.
func (d *Document) compileStyles() {
	d.rules = make(map[*html.Node][]styleRule)
	trees := []*html.Node{d.root}
	for sr := range d.hosts {
		trees = append(trees, sr)
	}

	for _, tree := range trees {
		order := 0
		for _, styleEl := range collect(tree, func(n *html.Node) bool { return n.DataAtom == atom.Style }) {
			sheet := parser.NewParser(htmlquery.InnerText(styleEl)).Parse()
			for _, rule := range sheet.Rules {
				group, err := cascadia.ParseGroup(rule.Selector)
				if err != nil {
					d.logger.Debug("Skipping unsupported style rule.",
						zap.String("selector", rule.Selector), zap.Error(err))
					continue
				}
				for _, sel := range group {
					d.rules[tree] = append(d.rules[tree], styleRule{
						sel:   sel,
						spec:  sel.Specificity(),
						order: order,
						decls: rule.Declarations,
					})
					order++
				}
			}
		}
	}
}

// declared returns the cascaded value of prop on n, if any declaration
// applies. Precedence: important over normal, inline over sheet, then
// specificity, then source order.
func (d *Document) declared(n *html.Node, prop string) (string, bool) {
	type candidate struct {
		value     string
		important bool
		inline    bool
		spec      cascadia.Specificity
		order     int
	}
	beats := func(a, b candidate) bool {
		if a.important != b.important {
			return a.important
		}
		if a.inline != b.inline {
			return a.inline
		}
		if a.spec != b.spec {
			return b.spec.Less(a.spec)
		}
		return a.order > b.order
	}

	var (
		best  candidate
		found bool
	)
	consider := func(c candidate) {
		if !found || beats(c, best) {
			best, found = c, true
		}
	}

	for _, rule := range d.rules[treeRoot(n)] {
		if !rule.sel.Match(n) {
			continue
		}
		for _, decl := range rule.decls {
			if decl.Property == prop {
				consider(candidate{value: decl.Value, important: decl.Important, spec: rule.spec, order: rule.order})
			}
		}
	}
	if style, ok := attr(n, "style"); ok {
		for i, decl := range parser.ParseInline(style) {
			if decl.Property == prop {
				consider(candidate{value: decl.Value, important: decl.Important, inline: true, order: i})
			}
		}
	}
	return best.value, found
}

// computed returns the computed value of prop on n.
func (d *Document) computed(n *html.Node, prop string) string {
	prop = strings.ToLower(prop)
	if n.Type == html.ElementNode {
		if v, ok := d.declared(n, prop); ok && v != "inherit" {
			return normalize(prop, v)
		}
		if inherited[prop] {
			if p := d.layoutParent(n); p != nil {
				return d.computed(p, prop)
			}
		}
	}

	switch prop {
	case "opacity":
		return "1"
	case "display":
		switch {
		case nonRendered[n.DataAtom]:
			return "none"
		case blockLevel[n.DataAtom]:
			return "block"
		default:
			return "inline"
		}
	case "visibility":
		return "visible"
	case "pointer-events", "z-index":
		return "auto"
	}
	return ""
}

func normalize(prop, v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if prop == "opacity" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "1"
		}
		f = min(max(f, 0), 1)
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

func px(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil {
		return 0
	}
	return f
}

// layoutParent returns the element n is laid out in, crossing from a shadow
// tree to its host. It returns nil at the document.
func (d *Document) layoutParent(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil {
		return d.hosts[n]
	}
	if host, ok := d.hosts[p]; ok {
		return host
	}
	if p.Type != html.ElementNode {
		return nil
	}
	return p
}

// box returns the border box of n in document coordinates.
func (d *Document) box(n *html.Node) element.Rect {
	if n.Type != html.ElementNode {
		return element.Rect{}
	}

	var origin element.Rect
	if p := d.layoutParent(n); p != nil {
		origin = d.box(p)
	}

	r := element.Rect{X: origin.X, Y: origin.Y}
	if v, ok := d.declared(n, "left"); ok {
		r.X += px(v)
	}
	if v, ok := d.declared(n, "top"); ok {
		r.Y += px(v)
	}

	fills := n.Namespace == "" && (n.DataAtom == atom.Html || n.DataAtom == atom.Body)
	if v, ok := d.declared(n, "width"); ok {
		r.Width = px(v)
	} else if fills {
		r.Width = d.width
	}
	if v, ok := d.declared(n, "height"); ok {
		r.Height = px(v)
	} else if fills {
		r.Height = d.height
	}
	return r
}

// connected reports whether n is reachable from the document root, crossing
// shadow boundaries through their hosts.
func (d *Document) connected(n *html.Node) bool {
	for {
		root := treeRoot(n)
		if root == d.root {
			return true
		}
		host, ok := d.hosts[root]
		if !ok {
			return false
		}
		n = host
	}
}

// rendered reports whether n generates boxes: it is connected and neither it
// nor an ancestor is display:none, hidden, or a non-rendered element, and it
// is not visibility:hidden.
func (d *Document) rendered(n *html.Node) bool {
	if !d.connected(n) {
		return false
	}
	for cur := n; cur != nil; cur = d.layoutParent(cur) {
		if nonRendered[cur.DataAtom] {
			return false
		}
		if _, hidden := attr(cur, "hidden"); hidden {
			return false
		}
		if cur.DataAtom == atom.Input {
			if t, _ := attr(cur, "type"); strings.EqualFold(t, "hidden") {
				return false
			}
		}
		if d.computed(cur, "display") == "none" {
			return false
		}
	}
	switch d.computed(n, "visibility") {
	case "hidden", "collapse":
		return false
	}
	return true
}

// displayed is rendered, additionally treating a fully transparent element
// or ancestor as not shown.
func (d *Document) displayed(n *html.Node) bool {
	if !d.rendered(n) {
		return false
	}
	for cur := n; cur != nil; cur = d.layoutParent(cur) {
		if d.computed(cur, "opacity") == "0" {
			return false
		}
	}
	return true
}

func zIndex(v string) int {
	z, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return z
}

// ElementsFromPoint returns the rendered elements of the document tree whose
// box contains the viewport point, topmost first: higher z-index wins, then
// later document position. Shadow tree content is represented by its host.
func (d *Document) ElementsFromPoint(x, y float64) []element.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docX, docY := x+d.scrollX, y+d.scrollY
	type hit struct {
		n     *html.Node
		z     int
		order int
	}
	var hits []hit
	i := 0
	walk(d.root, func(n *html.Node) bool {
		i++
		if !d.rendered(n) || d.computed(n, "pointer-events") == "none" {
			return true
		}
		r := d.box(n)
		if r.Width <= 0 || r.Height <= 0 {
			return true
		}
		if docX >= r.Left() && docX < r.Right() && docY >= r.Top() && docY < r.Bottom() {
			hits = append(hits, hit{n: n, z: zIndex(d.computed(n, "z-index")), order: i})
		}
		return true
	})

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].z != hits[b].z {
			return hits[a].z > hits[b].z
		}
		return hits[a].order > hits[b].order
	})

	out := make([]*html.Node, len(hits))
	for j, h := range hits {
		out[j] = h.n
	}
	return d.wrapElements(out)
}

// --- Window ---

// Window is the document's view: viewport metrics, scroll position and
// computed style.
type Window struct {
	doc *Document
}

var _ element.Window = (*Window)(nil)

func (w *Window) Document() element.Document { return w.doc }

func (w *Window) InnerWidth() float64 {
	w.doc.mu.RLock()
	defer w.doc.mu.RUnlock()
	return w.doc.width
}

func (w *Window) InnerHeight() float64 {
	w.doc.mu.RLock()
	defer w.doc.mu.RUnlock()
	return w.doc.height
}

func (w *Window) PageXOffset() float64 {
	w.doc.mu.RLock()
	defer w.doc.mu.RUnlock()
	return w.doc.scrollX
}

func (w *Window) PageYOffset() float64 {
	w.doc.mu.RLock()
	defer w.doc.mu.RUnlock()
	return w.doc.scrollY
}

// ComputedStyle returns a live view of el's computed style. Elements of
// other documents get an empty style.
func (w *Window) ComputedStyle(el element.Element) element.Style {
	n, err := w.doc.nodeOf(el)
	if err != nil {
		return emptyStyle{}
	}
	return &computedStyle{doc: w.doc, n: n}
}

// IsElementDisplayed reports whether el is shown to the user.
func (w *Window) IsElementDisplayed(el element.Element) bool {
	n, err := w.doc.nodeOf(el)
	if err != nil {
		return false
	}
	w.doc.mu.RLock()
	defer w.doc.mu.RUnlock()
	return w.doc.displayed(n)
}

type computedStyle struct {
	doc *Document
	n   *html.Node
}

func (s *computedStyle) PropertyValue(name string) string {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.doc.computed(s.n, name)
}

type emptyStyle struct{}

func (emptyStyle) PropertyValue(string) string { return "" }
