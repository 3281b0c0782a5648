// File: internal/browser/element/wait.go
package element

import (
	"context"
	"reflect"
	"time"
)

// DefaultPollInterval is the cadence used when a wait does not specify one.
const DefaultPollInterval = 100 * time.Millisecond

// WaitFor runs query until it produces a truthy result, an error, or the
// timeout elapses. The first attempt runs immediately regardless of the
// timeout. Subsequent attempts are scheduled interval after the previous one
// finished, and the final sleep is shortened so the last attempt lands on the
// deadline. On timeout the last result is returned without an error.
//
// Truthiness follows isTruthy: collections count when non-empty, everything
// else by its zero value. A query error ends the wait at once and is returned
// as is.
//
// The loop runs on the calling goroutine and owns a single timer, which is
// stopped on every exit. A cancelled context also ends the wait, returning
// ctx.Err().
func WaitFor[T any](ctx context.Context, query func() (T, error), timeout, interval time.Duration) (T, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout < 0 {
		timeout = 0
	}
	deadline := time.Now().Add(timeout)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		res, err := query()
		if err != nil {
			return res, err
		}
		if isTruthy(res) {
			return res, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return res, nil
		}
		sleep := min(interval, remaining)

		if timer == nil {
			timer = time.NewTimer(sleep)
		} else {
			timer.Reset(sleep)
		}

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsElementCollection reports whether v is a slice, array or map.
func IsElementCollection(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// isTruthy treats collections as truthy when non-empty and everything else by
// ordinary truthiness.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && f == f
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}
