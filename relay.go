package relay

import (
	"context"
	"io/fs"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/pkg/config"
	"github.com/dmitrymomot/relay/pkg/health"
	"github.com/dmitrymomot/relay/pkg/logger"
	"github.com/dmitrymomot/relay/pkg/sanitizer"
	"github.com/dmitrymomot/relay/pkg/session"
)

// Type aliases - public API
type (
	// Kernel boots the application and dispatches requests to controllers.
	Kernel = internal.Kernel

	// Container is the service registry.
	Container = internal.Container

	// Resolver resolves services by identifier.
	Resolver = internal.Resolver

	// ServiceFactory constructs a service instance.
	ServiceFactory = internal.ServiceFactory

	// Lifetime controls how instances are cached.
	Lifetime = internal.Lifetime

	// Context is handed to actions and middleware hooks.
	Context = internal.Context

	// HandlerFunc is the signature of actions and hooks.
	HandlerFunc = internal.HandlerFunc

	// Controller declares its actions.
	Controller = internal.Controller

	// Initializer is implemented by controllers with an Init hook.
	Initializer = internal.Initializer

	// Actions is the registry a controller fills.
	Actions = internal.Actions

	// ControllerFactory builds a controller for one dispatch.
	ControllerFactory = internal.ControllerFactory

	// Middleware runs hooks around every action.
	Middleware = internal.Middleware

	// MiddlewareFactory builds a middleware.
	MiddlewareFactory = internal.MiddlewareFactory

	// Hooks adapts a pair of functions to Middleware.
	Hooks = internal.Hooks

	// Route is the dispatch target of a request.
	Route = internal.Route

	// Param is a named route parameter.
	Param = internal.Param

	// Router maps paths to routes.
	Router = internal.Router

	// RequestContext holds the normalized input of a request.
	RequestContext = internal.RequestContext

	// ResponseContext is the response being built.
	ResponseContext = internal.ResponseContext

	// Values is an ordered key-value mapping.
	Values = internal.Values

	// Source identifies where a request value came from.
	Source = internal.Source

	// View carries the template context of a dispatch.
	View = internal.View

	// Renderer turns a named template into markup.
	Renderer = internal.Renderer

	// RendererFunc adapts a function to Renderer.
	RendererFunc = internal.RendererFunc

	// Severity classifies runtime faults.
	Severity = internal.Severity

	// ExceptionHandler replaces the default error response.
	ExceptionHandler = internal.ExceptionHandler

	// ErrorRouter turns failures into responses.
	ErrorRouter = internal.ErrorRouter

	// Settings is the runtime configuration.
	Settings = internal.Settings

	// Extractor reads a value from the first source that has it.
	Extractor = internal.Extractor

	// ExtractorSource reads one candidate value.
	ExtractorSource = internal.ExtractorSource

	// Option configures a Kernel.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures the health endpoints.
	HealthOption = internal.HealthOption

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor

	// Session is a user session.
	Session = session.Session

	// SessionStoreFactory builds a session backend.
	SessionStoreFactory = session.StoreFactory

	// Config is a loaded configuration tree.
	Config = config.Config
)

// Error types
type (
	// ResponseError carries the HTTP status to answer with.
	ResponseError = internal.ResponseError

	// KernelError reports a dispatch failure. It answers 401.
	KernelError = internal.KernelError

	// RuntimeError is a raised notice or a recovered panic.
	RuntimeError = internal.RuntimeError

	// ConfigurationError reports invalid configuration at boot.
	ConfigurationError = internal.ConfigurationError

	// CircularDependencyError reports a resolution cycle.
	CircularDependencyError = internal.CircularDependencyError

	// Location is a source position.
	Location = internal.Location
)

// Lifetimes
const (
	Shared  = internal.Shared
	Factory = internal.Factory
)

// Input sources
const (
	SourceGet     = internal.SourceGet
	SourcePost    = internal.SourcePost
	SourceCookie  = internal.SourceCookie
	SourceRequest = internal.SourceRequest
	SourceJSON    = internal.SourceJSON
	SourceParams  = internal.SourceParams
)

// Severities
const (
	SeverityError       = internal.SeverityError
	SeverityWarning     = internal.SeverityWarning
	SeverityNotice      = internal.SeverityNotice
	SeverityStrict      = internal.SeverityStrict
	SeverityRecoverable = internal.SeverityRecoverable
	SeverityDeprecated  = internal.SeverityDeprecated
	SeverityAll         = internal.SeverityAll
)

// Service identifiers bound by every Kernel.
const (
	ServiceRequest        = internal.ServiceRequest
	ServiceResponse       = internal.ServiceResponse
	ServiceRoute          = internal.ServiceRoute
	ServiceContext        = internal.ServiceContext
	ServiceInput          = internal.ServiceInput
	ServiceView           = internal.ServiceView
	ServiceSession        = internal.ServiceSession
	ServiceSessionManager = internal.ServiceSessionManager
	ServiceDB             = internal.ServiceDB
	ServiceRouter         = internal.ServiceRouter
	ServiceController     = internal.ServiceController
	ServiceMiddleware     = internal.ServiceMiddleware
	ServiceLogger         = internal.ServiceLogger
	ServiceConfig         = internal.ServiceConfig
	ServiceSettings       = internal.ServiceSettings
	ServiceRenderer       = internal.ServiceRenderer
	ServiceErrors         = internal.ServiceErrors
)

// LangParam is the route parameter holding the request language.
const LangParam = internal.LangParam

// Sentinel errors
var (
	ErrUnboundService     = internal.ErrUnboundService
	ErrServiceType        = internal.ErrServiceType
	ErrActionNotDefined   = internal.ErrActionNotDefined
	ErrControllerNotFound = internal.ErrControllerNotFound
	ErrActionNotFound     = internal.ErrActionNotFound
	ErrInvalidAction      = internal.ErrInvalidAction
	ErrUnknownMiddleware  = internal.ErrUnknownMiddleware
	ErrNoRenderer         = internal.ErrNoRenderer
)

// Constructors

// New creates a Kernel with the given options.
//
// Example:
//
//	k := relay.New(
//	    relay.WithConfig(cfg),
//	    relay.WithController("user", newUserController),
//	    relay.WithMiddleware("request_id", middlewares.RequestID()),
//	)
//
//	err := k.Run(ctx)
func New(opts ...Option) *Kernel {
	return internal.New(opts...)
}

// NewContainer creates an empty root container.
func NewContainer() *Container {
	return internal.NewContainer()
}

// Run serves several kernels from one server, selected by host.
//
// Example:
//
//	err := relay.Run(ctx,
//	    relay.Domain("api.acme.com", api),
//	    relay.Fallback(site),
//	    relay.Address(":8080"),
//	)
func Run(ctx context.Context, opts ...RunOption) error {
	return internal.Run(ctx, opts...)
}

// DefaultSettings returns the settings used for unset keys.
func DefaultSettings() Settings {
	return internal.DefaultSettings()
}

// LoadSettings decodes cfg over the defaults and applies RELAY_* environment overrides.
func LoadSettings(cfg *Config) (Settings, error) {
	return internal.LoadSettings(cfg)
}

// Container helpers

// Resolve resolves id and asserts the instance to T.
//
// Example:
//
//	db, err := relay.Resolve[*db.Manager](r, relay.ServiceDB)
func Resolve[T any](r Resolver, id string) (T, error) {
	return internal.Resolve[T](r, id)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver, id string) T {
	return internal.MustResolve[T](r, id)
}

// ControllerService returns the container id of a controller.
func ControllerService(name string) string {
	return internal.ControllerService(name)
}

// MiddlewareService returns the container id of a middleware.
func MiddlewareService(name string) string {
	return internal.MiddlewareService(name)
}

// Kernel options

// WithSettings uses s as is instead of loading settings.
func WithSettings(s Settings) Option {
	return internal.WithSettings(s)
}

// WithConfig sets the config settings are decoded from.
func WithConfig(cfg *Config) Option {
	return internal.WithConfig(cfg)
}

// WithLogger sets a fully custom logger.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithLogExtractors adds context extractors to the logger built from settings.
//
// Example:
//
//	relay.New(
//	    relay.WithLogExtractors(middlewares.RequestIDExtractor()),
//	)
func WithLogExtractors(extractors ...ContextExtractor) Option {
	return internal.WithLogExtractors(extractors...)
}

// WithRenderer sets the template renderer used by views.
func WithRenderer(r Renderer) Option {
	return internal.WithRenderer(r)
}

// WithController registers a controller under name.
func WithController(name string, f ControllerFactory) Option {
	return internal.WithController(name, f)
}

// WithMiddleware registers a middleware under name. Enable it by listing
// the name in the middleware setting.
func WithMiddleware(name string, f MiddlewareFactory) Option {
	return internal.WithMiddleware(name, f)
}

// WithInit adds a hook run during boot after the core services are bound.
func WithInit(fn func(k *Kernel) error) Option {
	return internal.WithInit(fn)
}

// WithExceptionHandler registers a custom exception handler.
func WithExceptionHandler(h ExceptionHandler) Option {
	return internal.WithExceptionHandler(h)
}

// WithRoute maps a chi pattern to controller/action.
func WithRoute(pattern, controller, action string) Option {
	return internal.WithRoute(pattern, controller, action)
}

// WithRouteParams names the positional parameters of controller/action.
func WithRouteParams(controller, action string, names ...string) Option {
	return internal.WithRouteParams(controller, action, names...)
}

// WithSessionStore makes a session backend selectable by session.type.
func WithSessionStore(kind string, f SessionStoreFactory) Option {
	return internal.WithSessionStore(kind, f)
}

// WithMigrations applies goose migrations to the default connection at boot.
func WithMigrations(fsys fs.FS) Option {
	return internal.WithMigrations(fsys)
}

// WithStaticFiles mounts a static file handler at pattern.
//
// Example:
//
//	//go:embed public
//	var assets embed.FS
//
//	relay.New(
//	    relay.WithStaticFiles("/static/*", assets, "public"),
//	)
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithHealthChecks serves liveness and readiness probes.
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// Health check options

// WithLivenessPath sets the liveness path. Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets the readiness path. Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Address sets the HTTP server address.
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the logger of the multi-domain server.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// ShutdownHook registers a cleanup function to run during shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// Domain maps a host pattern to a Kernel.
func Domain(pattern string, k *Kernel) RunOption {
	return internal.Domain(pattern, k)
}

// Fallback sets the Kernel serving unmatched hosts.
func Fallback(k *Kernel) RunOption {
	return internal.Fallback(k)
}

// WithContext sets the base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Errors

// NewResponseError creates an error answered with code.
//
// Example:
//
//	return relay.NewResponseError(http.StatusForbidden, "not your order")
func NewResponseError(code int, message string) *ResponseError {
	return internal.NewResponseError(code, message)
}

// NewResponseErrorWrap is NewResponseError with an underlying cause kept for logs.
func NewResponseErrorWrap(code int, message string, err error) *ResponseError {
	return internal.NewResponseError(code, message, internal.WithError(err))
}

// ErrNotFound creates a 404 ResponseError.
func ErrNotFound(message string) *ResponseError {
	return internal.ErrNotFound(message)
}

// NewKernelError creates a KernelError wrapping err.
func NewKernelError(message string, err error) *KernelError {
	return internal.NewKernelError(message, err)
}

// IsResponseError reports whether err carries a ResponseError.
func IsResponseError(err error) bool {
	return internal.IsResponseError(err)
}

// AsResponseError extracts the ResponseError from err, or nil.
func AsResponseError(err error) *ResponseError {
	return internal.AsResponseError(err)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	return internal.IsConfigurationError(err)
}

// StatusFor returns the status code the error router answers err with.
func StatusFor(err error) int {
	return internal.StatusFor(err)
}

// ParseSeverity parses a "|"-separated list of severity names.
func ParseSeverity(s string) (Severity, error) {
	return internal.ParseSeverity(s)
}

// Extractors

// NewExtractor creates an Extractor trying sources in order.
//
// Example:
//
//	token := relay.NewExtractor(
//	    relay.FromBearerToken(),
//	    relay.FromCookie("token"),
//	)
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource {
	return internal.FromHeader(name)
}

// FromQuery reads a GET parameter.
func FromQuery(name string) ExtractorSource {
	return internal.FromQuery(name)
}

// FromForm reads a POST parameter.
func FromForm(name string) ExtractorSource {
	return internal.FromForm(name)
}

// FromParam reads a route parameter.
func FromParam(name string) ExtractorSource {
	return internal.FromParam(name)
}

// FromInput reads key from the first input source that has it.
func FromInput(key string) ExtractorSource {
	return internal.FromInput(key)
}

// FromCookie reads a plain cookie.
func FromCookie(name string) ExtractorSource {
	return internal.FromCookie(name)
}

// FromSession reads a session value.
func FromSession(key string) ExtractorSource {
	return internal.FromSession(key)
}

// FromBearerToken reads a Bearer token.
func FromBearerToken() ExtractorSource {
	return internal.FromBearerToken()
}

// Context helpers

// ContextValue retrieves a typed value stored with Context.Set.
// Returns the zero value of T if the key is missing or has another type.
//
// Example:
//
//	user := relay.ContextValue[*User](c, userKey{})
func ContextValue[T any](c Context, key any) T {
	var zero T
	if c == nil {
		return zero
	}
	v, ok := c.Get(key).(T)
	if !ok {
		return zero
	}
	return v
}

// TidyInput applies the request input cleanup to v: control characters
// are stripped, double quotes become single quotes and backslash escapes
// before quotes are dropped, recursively through maps and slices.
func TidyInput(v any) any {
	return sanitizer.TidyValue(v, sanitizer.Options{})
}
