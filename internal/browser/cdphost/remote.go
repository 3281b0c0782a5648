// File: internal/browser/cdphost/remote.go
package cdphost

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
)

// objectGroup holds every remote object this package creates in a tab. The
// group is released before each navigation, since the page discards its nodes
// then. Temporary arrays are released as soon as they have been read.
const objectGroup = "scalpel-webdriver"

// declaration wraps fn so that node arguments arrive first, followed by the
// JSON-encoded plain arguments.
func declaration(fn string, args []interface{}) (string, error) {
	if args == nil {
		args = []interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode call arguments: %w", err)
	}
	return fmt.Sprintf("function(...nodes) { return (%s).apply(this, nodes.concat(%s)); }", fn, raw), nil
}

// callFunction calls fn with this bound to obj. Page exceptions are returned
// as errors.
func callFunction(ctx context.Context, obj runtime.RemoteObjectID, fn string, byValue bool, nodes []runtime.RemoteObjectID, args []interface{}) (*runtime.RemoteObject, error) {
	decl, err := declaration(fn, args)
	if err != nil {
		return nil, err
	}
	params := runtime.CallFunctionOn(decl).
		WithObjectID(obj).
		WithObjectGroup(objectGroup).
		WithReturnByValue(byValue)
	if len(nodes) > 0 {
		callArgs := make([]*runtime.CallArgument, len(nodes))
		for i, id := range nodes {
			callArgs[i] = &runtime.CallArgument{ObjectID: id}
		}
		params = params.WithArguments(callArgs)
	}

	res, exc, err := params.Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, fmt.Errorf("page script failed: %w", exc)
	}
	return res, nil
}

// callValue calls fn and decodes its JSON result into out. A nil out
// discards the result.
func (b *Browser) callValue(ctx context.Context, obj runtime.RemoteObjectID, fn string, out interface{}, nodes []runtime.RemoteObjectID, args ...interface{}) error {
	res, err := callFunction(ctx, obj, fn, true, nodes, args)
	if err != nil {
		return err
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// callNode calls fn and wraps the node it returns. A null result gives a nil
// node.
func (b *Browser) callNode(ctx context.Context, obj runtime.RemoteObjectID, fn string, nodes []runtime.RemoteObjectID, args ...interface{}) (element.Node, error) {
	res, err := callFunction(ctx, obj, fn, false, nodes, args)
	if err != nil {
		return nil, err
	}
	if res == nil || res.ObjectID == "" {
		return nil, nil
	}
	return b.wrap(ctx, res.ObjectID)
}

// callNodes calls fn, which must return an array of nodes, and wraps each
// entry in order.
func (b *Browser) callNodes(ctx context.Context, obj runtime.RemoteObjectID, fn string, nodes []runtime.RemoteObjectID, args ...interface{}) ([]element.Node, error) {
	res, err := callFunction(ctx, obj, fn, false, nodes, args)
	if err != nil {
		return nil, err
	}
	if res == nil || res.ObjectID == "" {
		return nil, nil
	}
	return b.enumerate(ctx, res.ObjectID)
}

// enumerate wraps each node of a remote array in order and then releases the
// array.
func (b *Browser) enumerate(ctx context.Context, arr runtime.RemoteObjectID) ([]element.Node, error) {
	defer b.release(ctx, arr)

	var n int
	if err := b.callValue(ctx, arr, "function() { return this.length; }", &n, nil); err != nil {
		return nil, err
	}
	out := make([]element.Node, 0, n)
	for i := 0; i < n; i++ {
		node, err := b.callNode(ctx, arr, "function(i) { return this[i]; }", nil, i)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

// release frees a remote object that is no longer needed. A failure only
// leaves the object to its group, so it is logged.
func (b *Browser) release(ctx context.Context, obj runtime.RemoteObjectID) {
	if err := runtime.ReleaseObject(obj).Do(ctx); err != nil {
		b.logger.Debug("Failed to release remote object.", zap.String("object_id", string(obj)), zap.Error(err))
	}
}

// evaluateNode evaluates expr in the page and wraps the resulting node.
func (b *Browser) evaluateNode(ctx context.Context, expr string) (element.Node, error) {
	res, exc, err := runtime.Evaluate(expr).WithObjectGroup(objectGroup).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, fmt.Errorf("page script failed: %w", exc)
	}
	if res.ObjectID == "" {
		return nil, nil
	}
	return b.wrap(ctx, res.ObjectID)
}

// evaluateValue evaluates expr in the page and decodes the result into out.
func evaluateValue(ctx context.Context, expr string, out interface{}) error {
	res, exc, err := runtime.Evaluate(expr).WithReturnByValue(true).Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return fmt.Errorf("page script failed: %w", exc)
	}
	return json.Unmarshal(res.Value, out)
}

// wrap describes the remote object and returns the wrapper for its node type.
func (b *Browser) wrap(ctx context.Context, obj runtime.RemoteObjectID) (element.Node, error) {
	desc, err := dom.DescribeNode().WithObjectID(obj).Do(ctx)
	if err != nil {
		b.release(ctx, obj)
		return nil, fmt.Errorf("failed to describe node: %w", err)
	}
	r := nodeRef{b: b, obj: obj, backend: desc.BackendNodeID, typ: element.NodeType(desc.NodeType)}

	switch desc.NodeType {
	case cdp.NodeTypeElement:
		return &Element{nodeRef: r}, nil
	case cdp.NodeTypeDocument:
		return &Document{nodeRef: r}, nil
	case cdp.NodeTypeDocumentFragment:
		if desc.ShadowRootType != "" {
			return &ShadowRoot{nodeRef: r}, nil
		}
	}
	return &r, nil
}

// resolve returns a fresh remote object for a backend node id.
func resolve(ctx context.Context, id cdp.BackendNodeID) (runtime.RemoteObjectID, error) {
	obj, err := dom.ResolveNode().WithBackendNodeID(id).WithObjectGroup(objectGroup).Do(ctx)
	if err != nil {
		return "", err
	}
	if obj == nil || obj.ObjectID == "" {
		return "", fmt.Errorf("backend node %d did not resolve", id)
	}
	return obj.ObjectID, nil
}
