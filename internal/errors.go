package internal

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Container errors.
var (
	// ErrUnboundService is returned when resolving an identifier that was never bound.
	ErrUnboundService = errors.New("container: service is not bound")

	// ErrServiceType is returned by Resolve when the instance has an unexpected type.
	ErrServiceType = errors.New("container: service has unexpected type")
)

// Dispatch errors.
var (
	// ErrActionNotDefined is wrapped by the KernelError returned when a path resolves to no action.
	ErrActionNotDefined = errors.New("kernel: action is not defined")

	// ErrControllerNotFound is wrapped by the KernelError returned for unknown controllers.
	ErrControllerNotFound = errors.New("kernel: controller does not exist")

	// ErrActionNotFound is wrapped by the 404 ResponseError returned for unknown actions.
	ErrActionNotFound = errors.New("kernel: method does not exist")

	// ErrInvalidAction is returned when a controller registers an unusable action.
	ErrInvalidAction = errors.New("kernel: invalid action registration")

	// ErrUnknownMiddleware is returned when a configured middleware is not bound.
	ErrUnknownMiddleware = errors.New("kernel: unknown middleware")

	// ErrNoRenderer is returned by View.Render when no renderer is configured.
	ErrNoRenderer = errors.New("kernel: no renderer configured")
)

// CircularDependencyError is returned when resolving an identifier re-enters
// a resolution already in progress on the same chain.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return "container: circular dependency: " + strings.Join(e.Chain, " -> ")
}

// Location identifies the source position an error was raised at.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// callStack is a captured set of program counters, formatted lazily.
type callStack []uintptr

func captureStack(skip int) callStack {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	return callStack(pcs[:n])
}

func (s callStack) location() Location {
	if len(s) == 0 {
		return Location{}
	}
	frame, _ := runtime.CallersFrames(s).Next()
	return Location{File: frame.File, Line: frame.Line}
}

func (s callStack) String() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(s)
	for i := 0; ; i++ {
		f, more := frames.Next()
		fmt.Fprintf(&b, "#%d %s:%d %s\n", i, f.File, f.Line, f.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// ResponseError is an error carrying the HTTP status code to answer with.
// The error router writes Code verbatim.
type ResponseError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Message is the user-facing error message.
	Message string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int

	stack callStack
}

func (e *ResponseError) Error() string {
	return e.Message
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

func (e *ResponseError) StatusCode() int {
	return e.Code
}

func (e *ResponseError) StatusText() string {
	return http.StatusText(e.Code)
}

// Where returns the location the error was created at.
func (e *ResponseError) Where() Location {
	return e.stack.location()
}

// Trace returns the formatted call stack captured at creation.
func (e *ResponseError) Trace() string {
	return e.stack.String()
}

// ResponseErrorOption configures a ResponseError.
type ResponseErrorOption func(*ResponseError)

// WithError attaches an underlying error.
func WithError(err error) ResponseErrorOption {
	return func(e *ResponseError) {
		e.Err = err
	}
}

// NewResponseError creates a ResponseError with the given status code and message.
// An empty message defaults to the status text.
func NewResponseError(code int, message string, opts ...ResponseErrorOption) *ResponseError {
	if message == "" {
		message = http.StatusText(code)
	}
	e := &ResponseError{
		Code:    code,
		Message: message,
		stack:   captureStack(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrNotFound creates a 404 ResponseError.
func ErrNotFound(message string, opts ...ResponseErrorOption) *ResponseError {
	e := NewResponseError(http.StatusNotFound, message, opts...)
	e.stack = captureStack(1)
	return e
}

// KernelError reports a dispatch failure that carries no explicit status.
// The error router answers it with 401.
type KernelError struct {
	Err     error
	Message string
	stack   callStack
}

// NewKernelError creates a KernelError wrapping err.
func NewKernelError(message string, err error) *KernelError {
	return &KernelError{
		Message: message,
		Err:     err,
		stack:   captureStack(1),
	}
}

func (e *KernelError) Error() string {
	return e.Message
}

func (e *KernelError) Unwrap() error {
	return e.Err
}

func (e *KernelError) Where() Location {
	return e.stack.location()
}

func (e *KernelError) Trace() string {
	return e.stack.String()
}

// RuntimeError is a runtime fault promoted to an error: either a runtime
// notice raised through the error router or a recovered panic.
type RuntimeError struct {
	// Value holds the recovered panic value, nil for raised notices.
	Value    any
	Message  string
	Location Location
	Severity Severity
	stack    callStack
}

func (e *RuntimeError) Error() string {
	return e.Severity.Label() + ": " + e.Message
}

func (e *RuntimeError) Where() Location {
	return e.Location
}

func (e *RuntimeError) Trace() string {
	return e.stack.String()
}

// Unwrap exposes a panic value that was itself an error.
func (e *RuntimeError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ConfigurationError reports missing or invalid configuration.
// It is fatal at boot.
type ConfigurationError struct {
	Err     error
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Message
	}
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Helper functions for error inspection.

// AsResponseError extracts the ResponseError from an error chain.
// Returns nil if there is none.
func AsResponseError(err error) *ResponseError {
	var re *ResponseError
	if errors.As(err, &re) {
		return re
	}
	return nil
}

// IsResponseError reports whether err carries a ResponseError.
func IsResponseError(err error) bool {
	return AsResponseError(err) != nil
}

// IsKernelError reports whether err carries a KernelError.
func IsKernelError(err error) bool {
	var ke *KernelError
	return errors.As(err, &ke)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ErrorKind names the category of err as shown on the diagnostic page.
func ErrorKind(err error) string {
	var (
		re *ResponseError
		ke *KernelError
		rt *RuntimeError
		ce *ConfigurationError
	)
	switch {
	case errors.As(err, &re):
		return "ResponseError"
	case errors.As(err, &ke):
		return "KernelError"
	case errors.As(err, &rt):
		return "RuntimeError"
	case errors.As(err, &ce):
		return "ConfigurationError"
	default:
		return fmt.Sprintf("%T", err)
	}
}

// StatusFor returns the HTTP status the error router answers err with.
// ResponseError codes pass through; everything else maps to 401.
func StatusFor(err error) int {
	if re := AsResponseError(err); re != nil && re.Code > 0 {
		return re.Code
	}
	return http.StatusUnauthorized
}

// located is implemented by errors that know where they were raised.
type located interface {
	Where() Location
	Trace() string
}

func asLocated(err error) (located, bool) {
	var l located
	if errors.As(err, &l) {
		return l, true
	}
	return nil, false
}
