// File: internal/browser/element/find.go
package element

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FindOptions tune a Find call.
type FindOptions struct {
	// All selects every match instead of the first.
	All bool
	// Timeout bounds the implicit wait. Zero means a single attempt.
	Timeout time.Duration
	// Interval is the polling cadence. Zero means DefaultPollInterval.
	Interval time.Duration
	// StartNode scopes the search. Nil means the container root.
	StartNode ParentNode
}

// FindResult holds the outcome of Find: Element for single lookups,
// Elements for All lookups.
type FindResult struct {
	Element  Element
	Elements []Element
}

// Find locates elements in the container using the given strategy,
// re-running the lookup until something matches or the timeout elapses.
//
// The search root is the container's shadow root when one is set, otherwise
// its document; opts.StartNode narrows the search below that root. Lookup
// failures from the selector engine are reported as InvalidSelectorError
// naming the strategy and expression, and they end the wait immediately.
//
// A single lookup that settles empty fails with NoSuchElementError. An All
// lookup that settles empty returns an empty slice.
func Find(ctx context.Context, c Container, strategy Strategy, pattern Pattern, opts FindOptions) (FindResult, error) {
	if c.Window == nil && c.ShadowRoot == nil {
		return FindResult{}, errors.New("find: container has no window")
	}
	root := c.Root()
	start := opts.StartNode
	if start == nil {
		start = root
	}

	query := func() ([]Element, error) {
		var (
			res []Element
			err error
		)
		if opts.All {
			res, err = findAll(strategy, pattern, root, start)
		} else {
			var el Element
			el, err = findOne(strategy, pattern, root, start)
			if el != nil {
				res = []Element{el}
			}
		}
		if err != nil {
			return nil, wrapSelectorError(strategy, pattern, err)
		}
		return res, nil
	}

	found, err := WaitFor(ctx, query, opts.Timeout, opts.Interval)
	if err != nil {
		return FindResult{}, err
	}

	if opts.All {
		if found == nil {
			found = []Element{}
		}
		return FindResult{Elements: found}, nil
	}
	if len(found) == 0 {
		return FindResult{}, &NoSuchElementError{Message: notFoundMessage(strategy, pattern)}
	}
	return FindResult{Element: found[0]}, nil
}

// FindElement is Find for a single element.
func FindElement(ctx context.Context, c Container, strategy Strategy, pattern Pattern, timeout time.Duration, start ParentNode) (Element, error) {
	res, err := Find(ctx, c, strategy, pattern, FindOptions{Timeout: timeout, StartNode: start})
	return res.Element, err
}

// FindElements is Find for every matching element.
func FindElements(ctx context.Context, c Container, strategy Strategy, pattern Pattern, timeout time.Duration, start ParentNode) ([]Element, error) {
	res, err := Find(ctx, c, strategy, pattern, FindOptions{All: true, Timeout: timeout, StartNode: start})
	return res.Elements, err
}

func wrapSelectorError(strategy Strategy, pattern Pattern, err error) error {
	var (
		ise  *InvalidSelectorError
		host *HostError
	)
	if errors.As(err, &ise) || errors.As(err, &host) {
		return err
	}
	return &InvalidSelectorError{
		Message: fmt.Sprintf("Given %s expression %q is invalid: %v", strategy, pattern.String(), err),
		Err:     err,
	}
}

func notFoundMessage(strategy Strategy, pattern Pattern) string {
	if strategy == AnonAttribute {
		return "Unable to locate anonymous element: " + pattern.String()
	}
	return "Unable to locate element: " + pattern.Expr
}
