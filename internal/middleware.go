package internal

import (
	"fmt"
	"strings"
)

// Middleware runs hooks around every dispatched action.
type Middleware interface {
	// Before runs after routing and before the controller is resolved.
	Before(c Context) error
	// After runs once the action returned without error.
	After(c Context) error
}

// MiddlewareFactory builds a middleware instance.
type MiddlewareFactory func(r Resolver) (Middleware, error)

// Hooks adapts a pair of functions to Middleware. Nil hooks are skipped.
type Hooks struct {
	BeforeFunc HandlerFunc
	AfterFunc  HandlerFunc
}

func (h Hooks) Before(c Context) error {
	if h.BeforeFunc == nil {
		return nil
	}
	return h.BeforeFunc(c)
}

func (h Hooks) After(c Context) error {
	if h.AfterFunc == nil {
		return nil
	}
	return h.AfterFunc(c)
}

// MiddlewareService returns the container id a middleware is bound under.
func MiddlewareService(name string) string {
	return "middleware." + strings.ToLower(name)
}

type namedMiddleware struct {
	name string
	mw   Middleware
}

// MiddlewareManager runs the configured middleware in registration order.
// After hooks run in the same order as before hooks, not reversed.
type MiddlewareManager struct {
	entries []namedMiddleware
}

// NewMiddlewareManager resolves every name from r in order.
// A name that is not bound yields an error wrapping ErrUnknownMiddleware.
func NewMiddlewareManager(r Resolver, names []string) (*MiddlewareManager, error) {
	m := &MiddlewareManager{}
	for _, name := range names {
		v, err := r.Resolve(MiddlewareService(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrUnknownMiddleware, name, err)
		}
		mw, ok := v.(Middleware)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T", ErrUnknownMiddleware, name, v)
		}
		m.entries = append(m.entries, namedMiddleware{name: name, mw: mw})
	}
	return m, nil
}

// Add appends mw to the pipeline.
func (m *MiddlewareManager) Add(name string, mw Middleware) {
	m.entries = append(m.entries, namedMiddleware{name: name, mw: mw})
}

// Names returns the middleware names in execution order.
func (m *MiddlewareManager) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

// HandleBefore runs every before hook, stopping at the first error.
func (m *MiddlewareManager) HandleBefore(c Context) error {
	for _, e := range m.entries {
		if err := e.mw.Before(c); err != nil {
			return err
		}
	}
	return nil
}

// HandleAfter runs every after hook, stopping at the first error.
func (m *MiddlewareManager) HandleAfter(c Context) error {
	for _, e := range m.entries {
		if err := e.mw.After(c); err != nil {
			return err
		}
	}
	return nil
}
