// Package form models the browser-side pieces a login submission touches:
// a form that emits submit events and text fields that expose their current
// value. Elements are registered in a Document and looked up by id once, at
// wiring time; handlers receive the handles directly.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Default element ids of the login page.
const (
	DefaultFormID        = "loginForm"
	DefaultUsernameField = "username"
	DefaultPasswordField = "password"
)

var (
	// ErrElementNotFound is returned when no element carries the requested id.
	ErrElementNotFound = errors.New("form: element not found")
	// ErrWrongElementKind is returned when the id names an element of another kind.
	ErrWrongElementKind = errors.New("form: element has unexpected kind")
)

// Field exposes the current text value of an input.
type Field interface {
	Value() string
}

// TextField is a settable input value, safe for concurrent use.
type TextField struct {
	mu    sync.RWMutex
	value string
}

// NewTextField returns a field holding value.
func NewTextField(value string) *TextField {
	return &TextField{value: value}
}

// Value returns the current contents.
func (f *TextField) Value() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set replaces the contents.
func (f *TextField) Set(value string) {
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
}

// SubmitEvent is delivered to submit listeners.
type SubmitEvent struct {
	prevented atomic.Int32
}

// PreventDefault suppresses the form's default navigation.
func (e *SubmitEvent) PreventDefault() {
	e.prevented.Add(1)
}

// DefaultPrevented reports whether any listener suppressed navigation.
func (e *SubmitEvent) DefaultPrevented() bool {
	return e.prevented.Load() > 0
}

// PreventDefaultCalls reports how many times PreventDefault was called.
func (e *SubmitEvent) PreventDefaultCalls() int {
	return int(e.prevented.Load())
}

// Listener reacts to a submit event.
type Listener func(ctx context.Context, ev *SubmitEvent)

// Form dispatches submit events to its listeners.
type Form struct {
	id        string
	mu        sync.RWMutex
	listeners []Listener
}

// New returns an empty form with the given id.
func New(id string) *Form {
	return &Form{id: id}
}

// ID returns the form's element id.
func (f *Form) ID() string {
	return f.id
}

// AddSubmitListener registers l; listeners run in registration order.
func (f *Form) AddSubmitListener(l Listener) {
	if l == nil {
		return
	}
	f.mu.Lock()
	f.listeners = append(f.listeners, l)
	f.mu.Unlock()
}

// Submit dispatches a new submit event to every listener synchronously and
// returns it. Listeners that start background work must not block here.
func (f *Form) Submit(ctx context.Context) *SubmitEvent {
	if ctx == nil {
		ctx = context.Background()
	}
	f.mu.RLock()
	listeners := make([]Listener, len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.RUnlock()

	ev := &SubmitEvent{}
	for _, l := range listeners {
		l(ctx, ev)
	}
	return ev
}

// Document is an id-indexed element registry.
type Document struct {
	mu       sync.RWMutex
	elements map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{elements: make(map[string]any)}
}

// Register stores el under id, replacing any previous element.
func (d *Document) Register(id string, el any) {
	d.mu.Lock()
	d.elements[id] = el
	d.mu.Unlock()
}

// Form returns the form registered under id.
func (d *Document) Form(id string) (*Form, error) {
	el, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	f, ok := el.(*Form)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a form", ErrWrongElementKind, id)
	}
	return f, nil
}

// Field returns the input registered under id.
func (d *Document) Field(id string) (Field, error) {
	el, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	f, ok := el.(Field)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an input", ErrWrongElementKind, id)
	}
	return f, nil
}

func (d *Document) lookup(id string) (any, error) {
	d.mu.RLock()
	el, ok := d.elements[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	return el, nil
}

// LoginPage builds a document holding a form and its two credential inputs
// under the given ids.
func LoginPage(formID, usernameID, passwordID string) (*Document, *Form, *TextField, *TextField) {
	doc := NewDocument()
	f := New(formID)
	user := NewTextField("")
	pass := NewTextField("")
	doc.Register(formID, f)
	doc.Register(usernameID, user)
	doc.Register(passwordID, pass)
	return doc, f, user, pass
}
