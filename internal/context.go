package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/relay/pkg/cookie"
	"github.com/dmitrymomot/relay/pkg/session"
)

// Context is handed to controller actions and middleware hooks.
// It also implements context.Context by delegating to the request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Input returns the normalized request input.
	Input() *RequestContext

	// Output returns the response being built.
	Output() *ResponseContext

	// Route returns the resolved route.
	Route() Route

	// Param returns a route parameter, or an empty string.
	Param(name string) string

	// Query returns a GET parameter as a string.
	Query(name string) string

	// Form returns a POST parameter as a string.
	Form(name string) string

	// InputValue looks key up in route params, JSON body, POST, GET and
	// cookies, in that order. Returns nil when no source has it.
	InputValue(key string) any

	// View returns the view of the current dispatch.
	View() *View

	// Session starts or resumes the request session.
	// Returns session.ErrNotConfigured when sessions are disabled.
	Session() (*session.Session, error)

	// Logger returns the application logger.
	Logger() *slog.Logger

	// Resolve resolves a service from the request scope.
	Resolve(id string) (any, error)

	// Scope returns the request-scoped container.
	Scope() *Container

	// Write writes action output, buffered or streamed depending on settings.
	Write(p []byte) (int, error)

	// String writes s as plain text output.
	String(s string) error

	// Render renders a template through the view and writes it as HTML.
	// An empty template renders the current action.
	Render(data map[string]any, template string, skipControllerDir bool) error

	// Component renders a templ component as HTML output.
	Component(c templ.Component) error

	// JSON writes v as a JSON response.
	JSON(v any) error

	// Redirect answers with a redirect to url.
	Redirect(code int, url string) error

	// SetHeader sets a response header. Last write wins.
	SetHeader(name, value string)

	// SetStatus sets the response status code.
	SetStatus(code int)

	// Trigger raises a runtime notice at the caller's location.
	// Returns nil when the severity is masked by the reporting settings,
	// otherwise an error that should be returned from the action.
	Trigger(sev Severity, message string) error

	// BaseURL returns the absolute URL the application is served under.
	BaseURL() string

	// Now returns the current time in the application time zone.
	Now() time.Time

	// Cookie returns a plain cookie value.
	Cookie(name string) (string, error)

	// SetCookie sets a plain cookie.
	SetCookie(name, value string, maxAge int)

	// Set stores a request-scoped value.
	Set(key, value any)

	// Get returns a value stored with Set or present on the request context.
	Get(key any) any
}

// requestContext implements Context.
type requestContext struct {
	request  *http.Request
	input    *RequestContext
	output   *ResponseContext
	view     *View
	scope    *Container
	logger   *slog.Logger
	errors   *ErrorRouter
	router   *Router
	sessions *session.Manager
	cookies  *cookie.Manager
	session  *session.Session
	location *time.Location
	route    Route
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Input() *RequestContext {
	return c.input
}

func (c *requestContext) Output() *ResponseContext {
	return c.output
}

func (c *requestContext) Route() Route {
	return c.route
}

func (c *requestContext) Param(name string) string {
	v, _ := c.route.Param(name)
	return v
}

func (c *requestContext) Query(name string) string {
	return c.input.Source(SourceGet).String(name)
}

func (c *requestContext) Form(name string) string {
	return c.input.Source(SourcePost).String(name)
}

func (c *requestContext) InputValue(key string) any {
	v, _ := c.input.Value(key)
	return v
}

func (c *requestContext) View() *View {
	return c.view
}

func (c *requestContext) Session() (*session.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	if c.sessions == nil {
		return nil, session.ErrNotConfigured
	}
	var sess *session.Session
	err := c.output.queueCookies(func(w http.ResponseWriter) error {
		var err error
		sess, err = c.sessions.Start(c.request.Context(), w, c.request)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.session = sess
	return sess, nil
}

// saveSession persists the session if the action started one.
func (c *requestContext) saveSession() error {
	if c.session == nil || c.sessions == nil {
		return nil
	}
	return c.sessions.Save(c.request.Context(), c.session)
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) Resolve(id string) (any, error) {
	return c.scope.Resolve(id)
}

func (c *requestContext) Scope() *Container {
	return c.scope
}

func (c *requestContext) Write(p []byte) (int, error) {
	return c.output.Write(p)
}

func (c *requestContext) String(s string) error {
	c.setDefaultContentType("text/plain; charset=utf-8")
	_, err := c.output.WriteString(s)
	return err
}

func (c *requestContext) Render(data map[string]any, template string, skipControllerDir bool) error {
	html, err := c.view.Render(c.request.Context(), data, template, skipControllerDir)
	if err != nil {
		return err
	}
	c.setDefaultContentType("text/html; charset=utf-8")
	_, err = c.output.WriteString(html)
	return err
}

func (c *requestContext) Component(component templ.Component) error {
	c.setDefaultContentType("text/html; charset=utf-8")
	return component.Render(c.request.Context(), c.output)
}

func (c *requestContext) JSON(v any) error {
	c.output.SetHeader("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(c.output).Encode(v)
}

func (c *requestContext) Redirect(code int, url string) error {
	if code < 300 || code > 399 {
		return fmt.Errorf("redirect: invalid status code %d", code)
	}
	c.output.SetHeader("Location", url)
	c.output.SetStatus(code)
	return nil
}

func (c *requestContext) SetHeader(name, value string) {
	c.output.SetHeader(name, value)
}

func (c *requestContext) SetStatus(code int) {
	c.output.SetStatus(code)
}

func (c *requestContext) Trigger(sev Severity, message string) error {
	var loc Location
	if _, file, line, ok := runtime.Caller(1); ok {
		loc = Location{File: file, Line: line}
	}
	return c.errors.OnRuntimeError(sev, message, loc)
}

func (c *requestContext) BaseURL() string {
	return c.router.BaseURL(c.request)
}

func (c *requestContext) Now() time.Time {
	if c.location == nil {
		return time.Now()
	}
	return time.Now().In(c.location)
}

func (c *requestContext) Cookie(name string) (string, error) {
	return c.cookies.Get(c.request, name)
}

func (c *requestContext) SetCookie(name, value string, maxAge int) {
	_ = c.output.queueCookies(func(w http.ResponseWriter) error {
		c.cookies.Set(w, name, value, maxAge)
		return nil
	})
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) setDefaultContentType(v string) {
	if _, ok := c.output.Header("Content-Type"); !ok {
		c.output.SetHeader("Content-Type", v)
	}
}
