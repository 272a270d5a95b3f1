package internal

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Lifetime controls how a Container caches the instances a binding produces.
type Lifetime int

const (
	// Shared bindings are constructed once per owning container and reused.
	Shared Lifetime = iota
	// Factory bindings are constructed on every resolution.
	Factory
)

func (l Lifetime) String() string {
	switch l {
	case Shared:
		return "shared"
	case Factory:
		return "factory"
	default:
		return "unknown"
	}
}

// Resolver resolves services by identifier.
type Resolver interface {
	Resolve(id string) (any, error)
}

// ServiceFactory constructs a service instance.
// The resolver passed in belongs to the current resolution chain, so
// dependencies resolved through it take part in cycle detection.
type ServiceFactory func(r Resolver) (any, error)

type binding struct {
	factory  ServiceFactory
	lifetime Lifetime
	gen      uint64
}

// Container is a service registry binding identifiers to factories.
//
// A container created with NewContainer lives as long as the application.
// Scope derives a child container for request-scoped services: lookups fall
// through to the parent, shared instances are cached by the container that
// owns the binding, and factory bindings are invoked with the resolving scope.
type Container struct {
	parent    *Container
	bindings  map[string]binding
	instances map[string]any
	building  map[string]*build
	gen       uint64
	mu        sync.RWMutex
}

// NewContainer creates an empty root container.
func NewContainer() *Container {
	return &Container{
		bindings:  make(map[string]binding),
		instances: make(map[string]any),
		building:  make(map[string]*build),
	}
}

// Scope creates a child container that inherits every binding of c.
func (c *Container) Scope() *Container {
	child := NewContainer()
	child.parent = c
	return child
}

// Bind registers factory under id, replacing any previous binding and
// dropping its cached instance.
func (c *Container) Bind(id string, factory ServiceFactory, lifetime Lifetime) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.bindings[id] = binding{factory: factory, lifetime: lifetime, gen: c.gen}
	delete(c.instances, id)
}

// BindInstance registers a pre-built shared instance under id.
func (c *Container) BindInstance(id string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.bindings[id] = binding{
		factory:  func(Resolver) (any, error) { return instance, nil },
		lifetime: Shared,
		gen:      c.gen,
	}
	c.instances[id] = instance
}

// Has reports whether id is bound in c or any of its parents.
func (c *Container) Has(id string) bool {
	_, _, ok := c.lookup(id)
	return ok
}

// Resolve returns the instance bound to id.
// Returns an error wrapping ErrUnboundService if id was never bound, and a
// *CircularDependencyError if construction re-enters id.
func (c *Container) Resolve(id string) (any, error) {
	return c.resolve(id, nil, &task{})
}

func (c *Container) resolve(id string, chain []string, t *task) (any, error) {
	if slices.Contains(chain, id) {
		return nil, &CircularDependencyError{Chain: append(slices.Clone(chain), id)}
	}

	owner, b, ok := c.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnboundService, id)
	}

	chain = append(slices.Clone(chain), id)
	if b.lifetime == Factory {
		return b.factory(&resolution{scope: c, chain: chain, task: t})
	}
	return owner.shared(id, b, chain, t)
}

// lookup finds the binding for id, walking up the scope chain.
func (c *Container) lookup(id string) (*Container, binding, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		b, ok := cur.bindings[id]
		cur.mu.RUnlock()
		if ok {
			return cur, b, true
		}
	}
	return nil, binding{}, false
}

func (c *Container) cached(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.instances[id]
	return v, ok
}

// errBuildAborted is reported to waiters when a shared construction
// panics before producing a result.
var errBuildAborted = errors.New("container: service construction aborted")

// flight guards in-progress shared constructions of every container and
// the wait edges between resolutions.
var flight sync.Mutex

// task is one top-level resolution. waiting is the construction it is
// blocked on, owned by another task.
type task struct {
	waiting *build
}

// build is a shared construction in progress.
type build struct {
	owner *task
	done  chan struct{}
	val   any
	err   error
}

// blocks reports whether waiting on b would make t wait on itself.
// Must be called with flight held.
func (b *build) blocks(t *task) bool {
	for o := b.owner; o != nil; o = o.waiting.owner {
		if o == t {
			return true
		}
		if o.waiting == nil {
			return false
		}
	}
	return false
}

// shared returns the cached instance for id or builds it exactly once.
// Concurrent first resolutions of the same id share a single construction;
// a wait that would close a cycle between resolutions fails instead.
func (c *Container) shared(id string, b binding, chain []string, t *task) (any, error) {
	if v, ok := c.cached(id); ok {
		return v, nil
	}

	flight.Lock()
	if v, ok := c.cached(id); ok {
		flight.Unlock()
		return v, nil
	}
	if running, ok := c.building[id]; ok {
		if running.blocks(t) {
			flight.Unlock()
			return nil, &CircularDependencyError{Chain: slices.Clone(chain)}
		}
		t.waiting = running
		flight.Unlock()

		<-running.done

		flight.Lock()
		t.waiting = nil
		flight.Unlock()
		return running.val, running.err
	}
	bd := &build{owner: t, done: make(chan struct{}), err: errBuildAborted}
	c.building[id] = bd
	flight.Unlock()

	defer func() {
		flight.Lock()
		delete(c.building, id)
		flight.Unlock()
		close(bd.done)
	}()

	bd.val, bd.err = c.construct(id, b, chain, t)
	return bd.val, bd.err
}

func (c *Container) construct(id string, b binding, chain []string, t *task) (any, error) {
	v, err := b.factory(&resolution{scope: c, chain: chain, task: t})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Only cache when the binding was not replaced during construction.
	if cur, ok := c.bindings[id]; ok && cur.gen == b.gen {
		c.instances[id] = v
	}
	return v, nil
}

// resolution is the Resolver handed to factories; it carries the chain of
// identifiers currently under construction.
type resolution struct {
	scope *Container
	task  *task
	chain []string
}

func (r *resolution) Resolve(id string) (any, error) {
	return r.scope.resolve(id, r.chain, r.task)
}

// Resolve resolves id and asserts the instance to T.
//
// Example:
//
//	log, err := internal.Resolve[*slog.Logger](c, ServiceLogger)
func Resolve[T any](r Resolver, id string) (T, error) {
	var zero T
	v, err := r.Resolve(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrServiceType, id, v)
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error.
// Use it only during wiring, where a missing service is a programming error.
func MustResolve[T any](r Resolver, id string) T {
	v, err := Resolve[T](r, id)
	if err != nil {
		panic(err)
	}
	return v
}
