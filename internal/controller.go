package internal

import (
	"fmt"
	"strings"
)

// HandlerFunc is the signature of controller actions and middleware hooks.
// Returning a non-nil error hands the request to the error router.
type HandlerFunc func(c Context) error

// Controller declares the actions it serves.
//
// Example:
//
//	type UserController struct {
//	    repo *repository.Queries
//	}
//
//	func (u *UserController) Actions(a *relay.Actions) {
//	    a.Public("index", u.list)
//	    a.Public("show", u.show)
//	    a.Internal("load", u.load)
//	}
type Controller interface {
	Actions(a *Actions)
}

// Initializer is implemented by controllers that prepare state before
// every action, e.g. loading the current user.
type Initializer interface {
	Init(c Context) error
}

// ControllerFactory builds a controller for one dispatch.
type ControllerFactory func(r Resolver) (Controller, error)

type actionEntry struct {
	fn     HandlerFunc
	public bool
}

// Actions is the registry a controller fills in Controller.Actions.
// Only public actions can be dispatched from a URL.
type Actions struct {
	entries map[string]actionEntry
	errs    []error
}

func newActions() *Actions {
	return &Actions{entries: make(map[string]actionEntry)}
}

// Public registers an action reachable by URL.
func (a *Actions) Public(name string, fn HandlerFunc) {
	a.add(name, fn, true)
}

// Internal registers an action that exists but is not dispatchable.
func (a *Actions) Internal(name string, fn HandlerFunc) {
	a.add(name, fn, false)
}

func (a *Actions) add(name string, fn HandlerFunc, public bool) {
	switch {
	case name == "":
		a.errs = append(a.errs, fmt.Errorf("%w: empty action name", ErrInvalidAction))
	case strings.Contains(name, "/"):
		a.errs = append(a.errs, fmt.Errorf("%w: action %q contains a slash", ErrInvalidAction, name))
	case fn == nil:
		a.errs = append(a.errs, fmt.Errorf("%w: action %q has no handler", ErrInvalidAction, name))
	default:
		if _, dup := a.entries[name]; dup {
			a.errs = append(a.errs, fmt.Errorf("%w: action %q registered twice", ErrInvalidAction, name))
			return
		}
		a.entries[name] = actionEntry{fn: fn, public: public}
	}
}

// Has reports whether name is registered, publicly or not.
func (a *Actions) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// IsPublic reports whether name is a dispatchable action.
func (a *Actions) IsPublic(name string) bool {
	e, ok := a.entries[name]
	return ok && e.public
}

// Lookup returns the handler for name regardless of visibility.
// Controllers use it to call their own internal actions.
func (a *Actions) Lookup(name string) (HandlerFunc, bool) {
	e, ok := a.entries[name]
	return e.fn, ok
}

// Err returns the registration errors, joined.
func (a *Actions) Err() error {
	if len(a.errs) == 0 {
		return nil
	}
	if len(a.errs) == 1 {
		return a.errs[0]
	}
	return fmt.Errorf("%w (and %d more)", a.errs[0], len(a.errs)-1)
}

// ActionsOf collects the actions declared by ctrl.
func ActionsOf(ctrl Controller) (*Actions, error) {
	a := newActions()
	ctrl.Actions(a)
	if err := a.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// ControllerService returns the container id a controller is bound under.
func ControllerService(name string) string {
	return "controller." + strings.ToLower(name)
}

// lookupAction resolves name on ctrl for dispatch.
// Unknown names yield a 404 naming the method, internal ones a plain 404.
func lookupAction(ctrl Controller, controller, name string) (HandlerFunc, error) {
	actions, err := ActionsOf(ctrl)
	if err != nil {
		return nil, NewKernelError(err.Error(), err)
	}
	e, ok := actions.entries[name]
	if !ok {
		msg := fmt.Sprintf("method %s does not exist in %s controller", name, controller)
		return nil, NewResponseError(404, msg, WithError(ErrActionNotFound))
	}
	if !e.public {
		return nil, NewResponseError(404, "", WithError(ErrActionNotFound))
	}
	return e.fn, nil
}
