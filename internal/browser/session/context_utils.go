// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext returns a context derived from ctx1 that is also canceled
// when ctx2 is done. Values come from ctx1 only.
//
// Command handlers use it to bound a request context by the browsing
// context's lifetime, so closing a context aborts its pending waits.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(ctx1)
	stop := context.AfterFunc(ctx2, func() {
		cancel(context.Cause(ctx2))
	})
	return combined, func() {
		stop()
		cancel(context.Canceled)
	}
}
