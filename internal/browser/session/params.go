// internal/browser/session/params.go
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// InvalidArgumentError reports malformed command parameters.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }
func (e *InvalidArgumentError) Code() string  { return element.CodeInvalidArgument }

func invalidArgument(format string, args ...interface{}) error {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// FindParams is a decoded find command.
type FindParams struct {
	Strategy element.Strategy
	Pattern  element.Pattern
}

// DecodeFindParams reads {"using": ..., "value": ...}. A map value is taken
// as an anon attribute pattern and must hold string values.
func DecodeFindParams(v schemas.Value) (FindParams, error) {
	m, ok := v.(schemas.Map)
	if !ok {
		return FindParams{}, invalidArgument("Expected find parameters to be an object, got %s", kindOf(v))
	}
	using, ok := m.Get("using").(schemas.String)
	if !ok {
		return FindParams{}, invalidArgument("Expected \"using\" to be a string, got %s", kindOf(m.Get("using")))
	}
	strategy, err := element.ParseStrategy(string(using))
	if err != nil {
		return FindParams{}, err
	}

	switch value := m.Get("value").(type) {
	case schemas.String:
		return FindParams{Strategy: strategy, Pattern: element.Expression(string(value))}, nil
	case schemas.Map:
		attr := make(map[string]string, len(value))
		for k, item := range value {
			s, ok := item.(schemas.String)
			if !ok {
				return FindParams{}, invalidArgument("Expected attribute %q to be a string, got %s", k, kindOf(item))
			}
			attr[k] = string(s)
		}
		return FindParams{Strategy: strategy, Pattern: element.Pattern{Attr: attr}}, nil
	default:
		return FindParams{}, invalidArgument("Expected \"value\" to be a string or an object, got %s", kindOf(value))
	}
}

// DecodeTimeouts reads {"implicit": ms} on top of the current values. Keys
// other than implicit are accepted and ignored.
func DecodeTimeouts(v schemas.Value, current Timeouts) (Timeouts, error) {
	m, ok := v.(schemas.Map)
	if !ok {
		return current, invalidArgument("Expected timeouts to be an object, got %s", kindOf(v))
	}
	raw, present := m["implicit"]
	if !present {
		return current, nil
	}
	n, ok := raw.(schemas.Number)
	if !ok || n < 0 || float64(n) != math.Trunc(float64(n)) || float64(n) > math.MaxInt32 {
		return current, invalidArgument("Expected \"implicit\" to be a non-negative integer, got %v", raw)
	}
	current.Implicit = time.Duration(n) * time.Millisecond
	return current, nil
}

// DecodeReference reads a web element reference.
func DecodeReference(v schemas.Value) (string, error) {
	ref, ok := v.(schemas.Reference)
	if !ok {
		return "", invalidArgument("Expected a web element reference, got %s", kindOf(v))
	}
	return ref.ID, nil
}

func kindOf(v schemas.Value) string {
	if v == nil {
		return schemas.KindNull.String()
	}
	return v.Kind().String()
}
