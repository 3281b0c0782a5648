// File: internal/browser/element/store.go
package element

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store maps opaque element references to weak element handles for a single
// browsing context.
//
// The store never keeps an element alive: entries hold a WeakHandle, and an
// entry whose element has been collected is evicted the next time Add or Get
// touches it. A reference is only meaningful to the store that issued it, so
// each browsing context owns its own Store and clears it on navigation.
//
// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	els    map[string]WeakHandle
	logger *zap.Logger
}

// NewStore creates an empty reference store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		els:    make(map[string]WeakHandle),
		logger: logger.Named("element_store"),
	}
}

// NewReference mints a fresh element reference.
func NewReference() string {
	return uuid.New().String()
}

// Add registers el and returns its reference. Adding an element that is
// already known returns the existing reference, where identity is decided by
// IsSameNode so two wrappers of one host node share a reference. Entries whose
// element has been collected are dropped along the way.
//
// A nil element, typed or untyped, fails with ErrNilElement.
func (s *Store) Add(el Element) (string, error) {
	if isNilElement(el) {
		return "", ErrNilElement
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(el), nil
}

func (s *Store) addLocked(el Element) string {
	for ref, handle := range s.els {
		known, ok := handle.Resolve()
		if !ok {
			delete(s.els, ref)
			s.logger.Debug("Dropped collected element reference.", zap.String("reference", ref))
			continue
		}
		if known.IsSameNode(el) {
			return ref
		}
	}

	ref := NewReference()
	s.els[ref] = el.Weak()
	s.logger.Debug("Registered element.",
		zap.String("reference", ref),
		zap.String("tag", el.LocalName()))
	return ref
}

// AddAll registers each element and returns references in the same order.
// Nothing is registered if any entry is nil.
func (s *Store) AddAll(els []Element) ([]string, error) {
	for i, el := range els {
		if isNilElement(el) {
			return nil, fmt.Errorf("index %d: %w", i, ErrNilElement)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]string, len(els))
	for i, el := range els {
		refs[i] = s.addLocked(el)
	}
	return refs, nil
}

// Has reports whether ref was issued by this store and not yet evicted. It
// does not check whether the element is still alive.
func (s *Store) Has(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.els[ref]
	return ok
}

// Get resolves ref against the given container. It fails with
// UnknownReferenceError when the reference was never issued or its element
// was collected, and with StaleElementReferenceError when the element belongs
// to another document or is detached from it.
func (s *Store) Get(ref string, c Container) (Element, error) {
	s.mu.Lock()
	handle, ok := s.els[ref]
	if !ok {
		s.mu.Unlock()
		return nil, &UnknownReferenceError{Reference: ref}
	}
	el, alive := handle.Resolve()
	if !alive {
		delete(s.els, ref)
		s.mu.Unlock()
		s.logger.Debug("Element reference was collected.", zap.String("reference", ref))
		return nil, &UnknownReferenceError{Reference: ref}
	}
	s.mu.Unlock()

	if c.Window == nil {
		return nil, &StaleElementReferenceError{Reference: ref}
	}
	doc := c.Window.Document()
	owner := el.OwnerDocument()
	if doc == nil || owner == nil || !owner.IsSameNode(doc) || IsDisconnected(el, c) {
		return nil, &StaleElementReferenceError{Reference: ref}
	}
	return el, nil
}

// Clear forgets every reference. Call it on navigation and teardown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.els)
	s.els = make(map[string]WeakHandle)
	if n > 0 {
		s.logger.Debug("Cleared element references.", zap.Int("count", n))
	}
}

// Len returns the number of entries, including ones not yet found collected.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.els)
}

func isNilElement(el Element) bool {
	return el == nil || isNilPointer(el)
}
