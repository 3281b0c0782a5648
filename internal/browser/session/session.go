// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-webdriver/api/schemas"
	"github.com/xkilldash9x/scalpel-webdriver/internal/browser/element"
	"github.com/xkilldash9x/scalpel-webdriver/internal/config"
)

// Timeouts are the session's wait settings.
type Timeouts struct {
	Implicit     time.Duration
	PollInterval time.Duration
}

// BrowsingContext serves element commands for one window. It owns the
// reference store for that window, so references never leak between
// contexts.
type BrowsingContext struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	store  *element.Store

	mu       sync.RWMutex
	win      element.Window
	shadow   element.ShadowRoot
	timeouts Timeouts
}

// New creates a browsing context over win. Closing parent closes the
// context.
func New(parent context.Context, win element.Window, timeouts config.TimeoutsConfig, logger *zap.Logger) *BrowsingContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	log := logger.Named("session").With(zap.String("context_id", id))
	ctx, cancel := context.WithCancel(parent)

	poll := timeouts.PollInterval
	if poll <= 0 {
		poll = element.DefaultPollInterval
	}
	return &BrowsingContext{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		logger:   log,
		store:    element.NewStore(log),
		win:      win,
		timeouts: Timeouts{Implicit: timeouts.Implicit, PollInterval: poll},
	}
}

// ID returns the context id.
func (bc *BrowsingContext) ID() string { return bc.id }

// Store returns the context's reference store.
func (bc *BrowsingContext) Store() *element.Store { return bc.store }

// Container returns the current lookup container.
func (bc *BrowsingContext) Container() element.Container {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return element.Container{Window: bc.win, ShadowRoot: bc.shadow}
}

// Timeouts returns the current wait settings.
func (bc *BrowsingContext) Timeouts() Timeouts {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.timeouts
}

// SetTimeouts applies a {"implicit": ms} command.
func (bc *BrowsingContext) SetTimeouts(params schemas.Value) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	t, err := DecodeTimeouts(params, bc.timeouts)
	if err != nil {
		return err
	}
	bc.timeouts = t
	bc.logger.Debug("Timeouts updated.", zap.Duration("implicit", t.Implicit))
	return nil
}

// Navigate replaces the window after a navigation. Every reference issued so
// far is forgotten before this returns, and the shadow root is reset.
func (bc *BrowsingContext) Navigate(win element.Window) {
	bc.mu.Lock()
	bc.win = win
	bc.shadow = nil
	bc.mu.Unlock()

	bc.store.Clear()
	bc.logger.Info("Browsing context navigated; element references cleared.")
}

// Close cancels pending waits and drops every reference.
func (bc *BrowsingContext) Close() {
	bc.cancel()
	bc.store.Clear()
}

// FindElement runs a find command from the container root.
func (bc *BrowsingContext) FindElement(ctx context.Context, params schemas.Value) (schemas.Value, error) {
	return bc.find(ctx, params, nil, false)
}

// FindElements runs a find-all command from the container root.
func (bc *BrowsingContext) FindElements(ctx context.Context, params schemas.Value) (schemas.Value, error) {
	return bc.find(ctx, params, nil, true)
}

// FindElementFromElement runs a find command scoped to the referenced element.
func (bc *BrowsingContext) FindElementFromElement(ctx context.Context, ref string, params schemas.Value) (schemas.Value, error) {
	start, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	return bc.find(ctx, params, start, false)
}

// FindElementsFromElement runs a find-all command scoped to the referenced
// element.
func (bc *BrowsingContext) FindElementsFromElement(ctx context.Context, ref string, params schemas.Value) (schemas.Value, error) {
	start, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	return bc.find(ctx, params, start, true)
}

func (bc *BrowsingContext) find(ctx context.Context, params schemas.Value, start element.ParentNode, all bool) (schemas.Value, error) {
	p, err := DecodeFindParams(params)
	if err != nil {
		return nil, err
	}
	ctx, cancel := CombineContext(ctx, bc.ctx)
	defer cancel()

	t := bc.Timeouts()
	res, err := element.Find(ctx, bc.Container(), p.Strategy, p.Pattern, element.FindOptions{
		All:       all,
		Timeout:   t.Implicit,
		Interval:  t.PollInterval,
		StartNode: start,
	})
	if err != nil {
		bc.logger.Debug("Find failed.",
			zap.Stringer("strategy", p.Strategy),
			zap.Stringer("pattern", p.Pattern),
			zap.Error(err))
		return nil, err
	}
	if all {
		return element.ToWire(res.Elements, bc.store)
	}
	return element.ToWire(res.Element, bc.store)
}

// GetElementAttribute returns the attribute value, or Null when absent.
// Boolean attributes read as "true" when present.
func (bc *BrowsingContext) GetElementAttribute(ref, name string) (schemas.Value, error) {
	el, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	value, ok := el.GetAttribute(name)
	switch {
	case !ok:
		return schemas.Null{}, nil
	case element.IsBooleanAttribute(el, name):
		return schemas.String("true"), nil
	default:
		return schemas.String(value), nil
	}
}

// IsElementDisplayed reports the window's rendering verdict for the element.
func (bc *BrowsingContext) IsElementDisplayed(ref string) (schemas.Value, error) {
	el, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	return schemas.Bool(bc.Container().Window.IsElementDisplayed(el)), nil
}

// IsElementInteractable reports whether the element accepts pointer or
// keyboard input.
func (bc *BrowsingContext) IsElementInteractable(ref string) (schemas.Value, error) {
	el, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	return schemas.Bool(element.IsInteractable(el)), nil
}

// GetElementRect returns the element's rect in page coordinates.
func (bc *BrowsingContext) GetElementRect(ref string) (schemas.Value, error) {
	el, err := bc.element(ref)
	if err != nil {
		return nil, err
	}
	win := bc.Container().Window
	r := el.BoundingClientRect()
	return schemas.Map{
		"x":      schemas.Number(r.X + win.PageXOffset()),
		"y":      schemas.Number(r.Y + win.PageYOffset()),
		"width":  schemas.Number(r.Width),
		"height": schemas.Number(r.Height),
	}, nil
}

// SwitchToShadowRoot makes the referenced host's shadow root the lookup
// container. Null switches back to the document.
func (bc *BrowsingContext) SwitchToShadowRoot(host schemas.Value) error {
	if _, isNull := host.(schemas.Null); host == nil || isNull {
		bc.mu.Lock()
		bc.shadow = nil
		bc.mu.Unlock()
		return nil
	}

	ref, err := DecodeReference(host)
	if err != nil {
		return err
	}
	el, err := bc.element(ref)
	if err != nil {
		return err
	}
	sh, ok := el.(element.ShadowHost)
	if !ok {
		return &element.NoSuchElementError{Message: "Unable to locate shadow root for element " + ref}
	}
	root, err := sh.ShadowRoot()
	if errors.Is(err, element.ErrNoShadowRoot) {
		return &element.NoSuchElementError{Message: "Unable to locate shadow root for element " + ref}
	}
	if err != nil {
		return err
	}

	bc.mu.Lock()
	bc.shadow = root
	bc.mu.Unlock()
	bc.logger.Debug("Switched to shadow root.", zap.String("host", ref))
	return nil
}

// Marshal converts a live value to its wire form, registering elements.
func (bc *BrowsingContext) Marshal(v interface{}) (schemas.Value, error) {
	return element.ToWire(v, bc.store)
}

// Unmarshal converts a wire value to live values, resolving references
// against the current container.
func (bc *BrowsingContext) Unmarshal(v schemas.Value) (interface{}, error) {
	return element.FromWire(v, bc.store, bc.Container())
}

// element resolves a reference against the current container.
func (bc *BrowsingContext) element(ref string) (element.Element, error) {
	return bc.store.Get(ref, bc.Container())
}

// ErrorResponse renders err in the protocol's error shape.
func ErrorResponse(err error) schemas.ErrorResponse {
	return schemas.ErrorResponse{Error: element.ErrorCode(err), Message: err.Error()}
}
