// Package internal implements the relay runtime.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/relay" instead, which re-exports the public API.
//
// # Core Types
//
//   - Kernel: boots the application and runs one dispatch cycle per request
//   - Container: service registry with shared and factory lifetimes and request scopes
//   - Router: maps /[lang/]controller/action/params paths and chi pattern overrides to a Route
//   - MiddlewareManager: ordered before and after hooks around every action
//   - ErrorRouter: turns every failure into one response
//   - Context: what actions and hooks see of the current request
//
// # Dispatch Cycle
//
// For every request the kernel reads and sanitizes the input, parses the
// route, runs the before hooks, resolves the controller from the request
// scope and looks the action up in its registry. It then builds the view,
// calls Init when the controller implements Initializer, calls the action,
// runs the after hooks, saves the session and flushes the response.
//
// Any error or panic ends the cycle. Buffered output is discarded and the
// error router answers; after hooks do not run.
//
// # Errors
//
// A *ResponseError answers with its own status code. Every other error,
// including *KernelError and *RuntimeError, answers 401. Diagnostic pages
// are rendered only when the app.show_errors setting is on.
package internal
