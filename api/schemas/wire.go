// File: api/schemas/wire.go
package schemas

import (
	"errors"
	"fmt"
	"math"
	"sort"

	json "github.com/json-iterator/go"
)

// WebElementKey is the property name under which a web element reference is
// carried on the wire.
const WebElementKey = "element-6066-11e4-a52e-4f735466cecf"

// LegacyElementKey is the pre-standard property name. It is still emitted
// alongside WebElementKey and still accepted on input.
const LegacyElementKey = "ELEMENT"

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindReference
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindReference:
		return "reference"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a JSON-safe value that can cross the protocol boundary.
// The set of implementations is closed to this package.
type Value interface {
	Kind() Kind
	wire()
}

// ErrInvalidNumber is returned when a number cannot be represented in JSON.
var ErrInvalidNumber = errors.New("wire: number is NaN or infinite")

type (
	// Null is the JSON null.
	Null struct{}
	// Bool is a JSON boolean.
	Bool bool
	// Number is a JSON number. All numbers travel as doubles.
	Number float64
	// String is a JSON string.
	String string
	// Sequence is an ordered JSON array.
	Sequence []Value
	// Map is a JSON object with string keys.
	Map map[string]Value
	// Reference is an opaque web element reference.
	Reference struct {
		ID string
	}
)

func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Sequence) Kind() Kind  { return KindSequence }
func (Map) Kind() Kind       { return KindMap }
func (Reference) Kind() Kind { return KindReference }

func (Null) wire()      {}
func (Bool) wire()      {}
func (Number) wire()    {}
func (String) wire()    {}
func (Sequence) wire()  {}
func (Map) wire()       {}
func (Reference) wire() {}

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON writes the reference under both the current and the legacy key.
func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		WebElementKey:    r.ID,
		LegacyElementKey: r.ID,
	})
}

// MarshalJSON guards against NaN and infinities, which JSON cannot carry.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ErrInvalidNumber
	}
	return json.Marshal(f)
}

// MarshalJSON encodes a nil sequence as an empty array.
func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(s))
}

// MarshalJSON encodes the map with sorted keys so output is stable.
func (m Map) MarshalJSON() ([]byte, error) {
	keys := m.Keys()
	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := Encode(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key, or Null when absent.
func (m Map) Get(key string) Value {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return Null{}
}

// NewReference builds the wire form of an element reference.
func NewReference(id string) Reference {
	return Reference{ID: id}
}

// Encode serializes a wire value to JSON. A nil Value encodes as null.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Decode parses JSON into a wire value. Any object carrying the current or
// the legacy element key is decoded as a Reference. The current key wins
// when both are present.
func Decode(data []byte) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wire: invalid JSON: %w", err)
	}
	return FromPlain(raw)
}

// FromPlain converts the output of a generic JSON decode into a wire value.
func FromPlain(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case float64:
		return Number(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("wire: bad number %q: %w", v.String(), err)
		}
		return Number(f), nil
	case string:
		return String(v), nil
	case []interface{}:
		seq := make(Sequence, 0, len(v))
		for i, item := range v {
			w, err := FromPlain(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			seq = append(seq, w)
		}
		return seq, nil
	case map[string]interface{}:
		if id, ok := ReferenceID(v); ok {
			return Reference{ID: id}, nil
		}
		m := make(Map, len(v))
		for k, item := range v {
			w, err := FromPlain(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = w
		}
		return m, nil
	default:
		return nil, fmt.Errorf("wire: unsupported JSON value of type %T", raw)
	}
}

// ReferenceID reports whether obj is a web element reference and returns its id.
func ReferenceID(obj map[string]interface{}) (string, bool) {
	if id, ok := obj[WebElementKey].(string); ok {
		return id, true
	}
	if id, ok := obj[LegacyElementKey].(string); ok {
		return id, true
	}
	return "", false
}

// ErrorResponse is the protocol shape of a failed command.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace,omitempty"`
}
