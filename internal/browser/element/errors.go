// File: internal/browser/element/errors.go
package element

import (
	"errors"
	"fmt"
)

// Typed errors let command handlers map failures onto protocol error codes
// with errors.As instead of matching on message text.

// Protocol error codes.
const (
	CodeInvalidSelector       = "invalid selector"
	CodeNoSuchElement         = "no such element"
	CodeStaleElementReference = "stale element reference"
	CodeInvalidArgument       = "invalid argument"
	CodeUnknownError          = "unknown error"
)

var (
	// ErrNotImplemented is returned by hosts for properties they cannot
	// produce. Marshaling skips such properties.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnsupportedValue is returned when a value has no wire form.
	ErrUnsupportedValue = errors.New("value cannot be serialized")
	// ErrNoShadowRoot is returned when an element hosts no shadow tree.
	ErrNoShadowRoot = errors.New("element has no shadow root")
	// ErrNilElement is returned when a nil element is registered in a store.
	ErrNilElement = errors.New("element is nil")
)

// coded is implemented by every typed error in this package.
type coded interface {
	Code() string
}

// ErrorCode returns the protocol error code for err.
func ErrorCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeUnknownError
}

// InvalidSelectorError reports a strategy or expression the engine rejected.
type InvalidSelectorError struct {
	Message string
	Err     error
}

func (e *InvalidSelectorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "invalid selector"
}

func (e *InvalidSelectorError) Unwrap() error { return e.Err }
func (e *InvalidSelectorError) Code() string  { return CodeInvalidSelector }

// NewInvalidSelectorError builds an InvalidSelectorError with a formatted message.
func NewInvalidSelectorError(format string, args ...interface{}) *InvalidSelectorError {
	return &InvalidSelectorError{Message: fmt.Sprintf(format, args...)}
}

// NoSuchElementError reports that a single-element find settled empty.
type NoSuchElementError struct {
	Message string
}

func (e *NoSuchElementError) Error() string { return e.Message }
func (e *NoSuchElementError) Code() string  { return CodeNoSuchElement }

// UnknownReferenceError reports a reference this store never issued, or whose
// element has since been collected.
type UnknownReferenceError struct {
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("Web element reference not seen before: %s", e.Reference)
}

func (e *UnknownReferenceError) Code() string { return CodeNoSuchElement }

// StaleElementReferenceError reports a known reference whose element is no
// longer attached to the expected document.
type StaleElementReferenceError struct {
	Reference string
}

func (e *StaleElementReferenceError) Error() string {
	return fmt.Sprintf("The element reference of %s is stale; either the element is no longer "+
		"attached to the DOM, it is not in the current frame context, or the document has been refreshed",
		e.Reference)
}

func (e *StaleElementReferenceError) Code() string { return CodeStaleElementReference }

// UnknownElementError is raised when a reference resolves to nothing without
// any other error being reported.
type UnknownElementError struct {
	Reference string
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("unknown element: %s", e.Reference)
}

func (e *UnknownElementError) Code() string { return CodeUnknownError }

// OffsetTypeError reports a coordinate offset that is not a number.
type OffsetTypeError struct {
	Axis  string
	Value interface{}
}

func (e *OffsetTypeError) Error() string {
	return fmt.Sprintf("Offset must be a number: %s=%v (%T)", e.Axis, e.Value, e.Value)
}

func (e *OffsetTypeError) Code() string { return CodeInvalidArgument }

// HostError reports that the DOM host could not answer a lookup, for example
// because the browser connection failed. Unlike a malformed selector it is
// not turned into InvalidSelectorError and maps to "unknown error".
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }
func (e *HostError) Code() string  { return CodeUnknownError }
