// File: internal/browser/element/marshal.go
package element

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
)

// PropertyBag is a host composite whose properties are read one at a time
// and may fail individually.
type PropertyBag interface {
	Keys() []string
	Property(key string) (interface{}, error)
}

// MakeWebElement returns the wire form of a reference.
func MakeWebElement(ref string) schemas.Reference {
	return schemas.NewReference(ref)
}

// ToWire converts a live value into its wire form.
//
// Scalars pass through and nil becomes Null. Elements are registered in store
// and replaced by references; a nil element, including a typed nil inside a
// []Element, becomes Null. Slices, arrays, string-keyed maps, exported struct
// fields and PropertyBag values are walked recursively. Properties failing
// with ErrNotImplemented are logged and skipped. Values with no wire form,
// such as channels, funcs or non-finite numbers, fail with
// ErrUnsupportedValue.
func ToWire(v interface{}, store *Store) (schemas.Value, error) {
	switch val := v.(type) {
	case nil:
		return schemas.Null{}, nil
	case schemas.Value:
		return val, nil
	case Element:
		if isNilElement(val) {
			return schemas.Null{}, nil
		}
		ref, err := store.Add(val)
		if err != nil {
			return nil, err
		}
		return MakeWebElement(ref), nil
	case []Element:
		seq := make(schemas.Sequence, 0, len(val))
		for _, el := range val {
			if isNilElement(el) {
				seq = append(seq, schemas.Null{})
				continue
			}
			ref, err := store.Add(el)
			if err != nil {
				return nil, err
			}
			seq = append(seq, MakeWebElement(ref))
		}
		return seq, nil
	case PropertyBag:
		return bagToWire(val, store)
	}
	return reflectToWire(reflect.ValueOf(v), store)
}

func bagToWire(bag PropertyBag, store *Store) (schemas.Value, error) {
	out := make(schemas.Map)
	for _, key := range bag.Keys() {
		prop, err := bag.Property(key)
		if errors.Is(err, ErrNotImplemented) {
			store.logger.Debug("Skipping unimplemented property.", zap.String("property", key))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		w, err := ToWire(prop, store)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		out[key] = w
	}
	return out, nil
}

func reflectToWire(rv reflect.Value, store *Store) (schemas.Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return schemas.Null{}, nil
	case reflect.Bool:
		return schemas.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return schemas.Number(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return schemas.Number(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrUnsupportedValue)
		}
		return schemas.Number(f), nil
	case reflect.String:
		return schemas.String(rv.String()), nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return schemas.Null{}, nil
		}
		return ToWire(rv.Elem().Interface(), store)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return schemas.Sequence{}, nil
		}
		seq := make(schemas.Sequence, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			w, err := ToWire(rv.Index(i).Interface(), store)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			seq = append(seq, w)
		}
		return seq, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrUnsupportedValue, rv.Type().Key())
		}
		out := make(schemas.Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			w, err := ToWire(iter.Value().Interface(), store)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = w
		}
		return out, nil

	case reflect.Struct:
		out := make(schemas.Map)
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			w, err := ToWire(rv.Field(i).Interface(), store)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out[name] = w
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Type())
}

// FromWire converts a wire value back into live values, resolving references
// through store against the given container.
func FromWire(v schemas.Value, store *Store, c Container) (interface{}, error) {
	switch val := v.(type) {
	case nil, schemas.Null:
		return nil, nil
	case schemas.Bool:
		return bool(val), nil
	case schemas.Number:
		return float64(val), nil
	case schemas.String:
		return string(val), nil
	case schemas.Sequence:
		out := make([]interface{}, 0, len(val))
		for i, item := range val {
			live, err := FromWire(item, store, c)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, live)
		}
		return out, nil
	case schemas.Reference:
		el, err := store.Get(val.ID, c)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, &UnknownElementError{Reference: val.ID}
		}
		return el, nil
	case schemas.Map:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			live, err := FromWire(item, store, c)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = live
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: wire kind %s", ErrUnsupportedValue, v.Kind())
}

func isNilPointer(v interface{}) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
