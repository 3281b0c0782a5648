// File: internal/browser/element/strategy.go
package element

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
)

// Strategy is a location strategy.
type Strategy int

const (
	ClassName Strategy = iota + 1
	Selector
	ID
	Name
	LinkText
	PartialLinkText
	TagName
	XPath
	Anon
	AnonAttribute
)

var strategyNames = map[Strategy]string{
	ClassName:       "class name",
	Selector:        "css selector",
	ID:              "id",
	Name:            "name",
	LinkText:        "link text",
	PartialLinkText: "partial link text",
	TagName:         "tag name",
	XPath:           "xpath",
	Anon:            "anon",
	AnonAttribute:   "anon attribute",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// Strategies lists every known strategy by its protocol name, sorted.
func Strategies() []string {
	names := make([]string, 0, len(strategyNames))
	for _, n := range strategyNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseStrategy maps a protocol strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, NewInvalidSelectorError("No such strategy: %s", name)
}

// Pattern is the value half of a find request. Anon attribute lookups use
// Attr, which must hold exactly one entry; all other strategies use Expr.
type Pattern struct {
	Expr string
	Attr map[string]string
}

// Expression returns a pattern from a plain selector string.
func Expression(expr string) Pattern {
	return Pattern{Expr: expr}
}

// Attribute returns an anon attribute pattern.
func Attribute(name, value string) Pattern {
	return Pattern{Attr: map[string]string{name: value}}
}

// single returns the only attribute pair of an anon attribute pattern.
func (p Pattern) single() (string, string, error) {
	if len(p.Attr) != 1 {
		return "", "", fmt.Errorf("expected exactly one attribute name/value pair, got %d", len(p.Attr))
	}
	for k, v := range p.Attr {
		return k, v, nil
	}
	return "", "", nil
}

// String renders the pattern for error messages. Attribute maps render as JSON.
func (p Pattern) String() string {
	if p.Attr != nil {
		b, err := json.Marshal(p.Attr)
		if err != nil {
			return fmt.Sprint(p.Attr)
		}
		return string(b)
	}
	return p.Expr
}

// quoteXPath returns s as an XPath string literal, falling back to concat()
// when it contains both quote characters.
func quoteXPath(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if part != "" {
			quoted = append(quoted, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
