package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/relay/pkg/config"
	"github.com/dmitrymomot/relay/pkg/cookie"
	"github.com/dmitrymomot/relay/pkg/db"
	"github.com/dmitrymomot/relay/pkg/health"
	"github.com/dmitrymomot/relay/pkg/logger"
	"github.com/dmitrymomot/relay/pkg/sanitizer"
	"github.com/dmitrymomot/relay/pkg/session"
)

// Service identifiers bound by the Kernel.
const (
	ServiceRequest        = "request"
	ServiceResponse       = "response"
	ServiceRoute          = "route"
	ServiceContext        = "context"
	ServiceInput          = "input"
	ServiceView           = "view"
	ServiceSession        = "session"
	ServiceSessionManager = "session.manager"
	ServiceDB             = "db"
	ServiceRouter         = "router"
	ServiceController     = "controller"
	ServiceMiddleware     = "middleware"
	ServiceLogger         = "logger"
	ServiceConfig         = "config"
	ServiceSettings       = "settings"
	ServiceRenderer       = "renderer"
	ServiceErrors         = "errors"
)

// errOutOfScope is returned when a request-scoped service is resolved
// from the root container.
var errOutOfScope = errors.New("kernel: service is only available inside a request scope")

type routeOverride struct {
	pattern    string
	controller string
	action     string
}

type routeParams struct {
	controller string
	action     string
	names      []string
}

type staticMount struct {
	handler http.Handler
	pattern string
}

// Kernel boots the application and dispatches every request to a
// controller action.
type Kernel struct {
	container  *Container
	config     *config.Config
	logger     *slog.Logger
	renderer   Renderer
	router     *Router
	errors     *ErrorRouter
	middleware *MiddlewareManager
	sessions   *session.Manager
	db         *db.Manager
	cookies    *cookie.Manager
	mux        chi.Router
	location   *time.Location
	health     *healthConfig
	migrations fs.FS

	controllers   map[string]ControllerFactory
	middlewares   map[string]MiddlewareFactory
	sessionStores map[string]session.StoreFactory
	extractors    []logger.ContextExtractor
	initHooks     []func(*Kernel) error
	handlers      []ExceptionHandler
	routes        []routeOverride
	routeParams   []routeParams
	statics       []staticMount
	shutdownHooks []func(context.Context) error

	input       inputReader
	settings    Settings
	settingsSet bool

	bootOnce sync.Once
	bootErr  error
	running  atomic.Bool
}

// New creates a Kernel. Nothing is connected until Boot.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		container:     NewContainer(),
		db:            db.NewManager(),
		controllers:   make(map[string]ControllerFactory),
		middlewares:   make(map[string]MiddlewareFactory),
		sessionStores: make(map[string]session.StoreFactory),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Container returns the application container.
func (k *Kernel) Container() *Container {
	return k.container
}

// Settings returns the active settings. They are final after Boot.
func (k *Kernel) Settings() Settings {
	return k.settings
}

// Logger returns the application logger, or slog.Default before boot.
func (k *Kernel) Logger() *slog.Logger {
	if k.logger == nil {
		return slog.Default()
	}
	return k.logger
}

// Router returns the router. Nil before Boot.
func (k *Kernel) Router() *Router {
	return k.router
}

// DB returns the connection manager.
func (k *Kernel) DB() *db.Manager {
	return k.db
}

// Sessions returns the session manager, or nil when sessions are disabled.
func (k *Kernel) Sessions() *session.Manager {
	return k.sessions
}

// Location returns the configured time zone. Nil before Boot.
func (k *Kernel) Location() *time.Location {
	return k.location
}

// Boot prepares the kernel: settings, time zone, logging, error routing,
// core bindings, init hooks, sessions and the database.
// It runs once; later calls return the first result.
func (k *Kernel) Boot(ctx context.Context) error {
	k.bootOnce.Do(func() {
		k.bootErr = k.boot(ctx)
	})
	return k.bootErr
}

func (k *Kernel) boot(ctx context.Context) error {
	if !k.settingsSet {
		s, err := LoadSettings(k.config)
		if err != nil {
			return err
		}
		k.settings = s
	}
	if err := k.settings.Validate(); err != nil {
		return err
	}

	app := k.settings.App
	loc, err := time.LoadLocation(app.Timezone)
	if err != nil {
		return &ConfigurationError{Key: "app.timezone", Err: err, Message: err.Error()}
	}
	k.location = loc

	if k.logger == nil {
		if err := k.initLogger(); err != nil {
			return err
		}
	}

	mask, _ := ParseSeverity(k.settings.ErrorReporting)
	k.errors = NewErrorRouter(mask, app.ShowErrors, k.logger)
	for _, h := range k.handlers {
		k.errors.AddHandler(h)
	}

	if err := k.initRouter(); err != nil {
		return err
	}

	maxBody := app.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	k.input = inputReader{maxBody: maxBody, tidy: sanitizer.Options{StripTags: app.StripTags}}
	k.cookies = cookie.New(cookie.WithSecret(k.settings.Session.Secret))

	k.bindCore()

	for _, hook := range k.initHooks {
		if err := hook(k); err != nil {
			return fmt.Errorf("kernel: init hook: %w", err)
		}
	}
	if k.container.Has(ServiceRenderer) {
		r, err := Resolve[Renderer](k.container, ServiceRenderer)
		if err != nil {
			return fmt.Errorf("kernel: %w", err)
		}
		k.renderer = r
	}

	if err := k.initSessions(ctx); err != nil {
		return err
	}
	if err := k.initDatabase(ctx); err != nil {
		return err
	}

	mm, err := Resolve[*MiddlewareManager](k.container, ServiceMiddleware)
	if err != nil {
		return &ConfigurationError{Key: "middleware", Err: err, Message: err.Error()}
	}
	k.middleware = mm
	k.mux = k.buildMux()

	k.logger.InfoContext(ctx, "kernel booted",
		slog.String("timezone", loc.String()),
		slog.Any("middleware", mm.Names()),
		slog.Bool("sessions", k.sessions != nil),
		slog.Any("databases", k.db.Names()),
	)
	return nil
}

func (k *Kernel) initLogger() error {
	level, _ := logger.ParseLevel(k.settings.Log.Level)
	log, closer, err := logger.NewFromConfig(logger.Config{
		Dir:   k.settings.Log.Dir,
		Level: level,
		Sentry: logger.SentryConfig{
			DSN:         k.settings.Sentry.DSN,
			Environment: k.settings.Sentry.Environment,
			MinLevel:    level,
		},
		Location: k.location,
	}, k.extractors...)
	if err != nil {
		return &ConfigurationError{Key: "log.dir", Err: err, Message: err.Error()}
	}
	k.logger = log
	k.shutdownHooks = append(k.shutdownHooks, closeHook(closer))
	return nil
}

func (k *Kernel) initRouter() error {
	app := k.settings.App
	opts := []RouterOption{
		WithBasePath(app.BasePath),
		WithBaseURL(app.BaseURL),
	}
	if len(app.Languages) > 0 {
		opts = append(opts, WithLanguages(app.Language, app.Languages...))
	}
	k.router = NewRouter(opts...)

	for _, o := range k.routes {
		if err := k.router.Handle(o.pattern, o.controller, o.action); err != nil {
			return &ConfigurationError{Key: "routes", Err: err, Message: err.Error()}
		}
	}
	for _, p := range k.routeParams {
		k.router.Params(p.controller, p.action, p.names...)
	}
	return nil
}

// bindCore registers the services every application gets. Controllers
// are factory bindings, everything else is shared.
func (k *Kernel) bindCore() {
	c := k.container

	outOfScope := func(id string) ServiceFactory {
		return func(Resolver) (any, error) {
			return nil, fmt.Errorf("%w: %q", errOutOfScope, id)
		}
	}
	for _, id := range []string{ServiceRequest, ServiceResponse, ServiceRoute, ServiceContext, ServiceInput, ServiceView, ServiceSession} {
		c.Bind(id, outOfScope(id), Factory)
	}

	cfg := k.config
	if cfg == nil {
		cfg = config.New(nil)
	}
	c.BindInstance(ServiceConfig, cfg)
	c.BindInstance(ServiceSettings, k.settings)
	c.BindInstance(ServiceLogger, k.logger)
	c.BindInstance(ServiceRouter, k.router)
	c.BindInstance(ServiceErrors, k.errors)
	c.BindInstance(ServiceDB, k.db)
	if k.renderer != nil {
		c.BindInstance(ServiceRenderer, k.renderer)
	}

	for name, factory := range k.controllers {
		c.Bind(ControllerService(name), func(r Resolver) (any, error) {
			return factory(r)
		}, Factory)
	}
	c.Bind(ServiceController, func(r Resolver) (any, error) {
		route, err := Resolve[Route](r, ServiceRoute)
		if err != nil {
			return nil, err
		}
		return r.Resolve(ControllerService(route.Controller))
	}, Factory)

	for name, factory := range k.middlewares {
		c.Bind(MiddlewareService(name), func(r Resolver) (any, error) {
			return factory(r)
		}, Shared)
	}
	names := k.settings.Middleware
	c.Bind(ServiceMiddleware, func(r Resolver) (any, error) {
		return NewMiddlewareManager(r, names)
	}, Shared)
}

func (k *Kernel) initSessions(ctx context.Context) error {
	s := k.settings.Session
	if s.Disabled {
		return nil
	}

	var (
		store session.Store
		err   error
	)
	if f, ok := k.sessionStores[s.Type]; ok {
		store, err = f(ctx, session.StoreConfig{RedisURL: s.RedisURL})
	} else {
		store, err = session.NewStore(ctx, s.Type, session.StoreConfig{RedisURL: s.RedisURL})
	}
	if err != nil {
		return &ConfigurationError{Key: "session.type", Err: err, Message: err.Error()}
	}
	if closer, ok := store.(io.Closer); ok {
		k.shutdownHooks = append(k.shutdownHooks, closeHook(closer))
	}

	m := session.NewManager(store,
		session.WithSecret(s.Secret),
		session.WithLogger(k.logger),
	)
	m.SetCookieParams(session.CookieParams{
		Name:     s.Name,
		Path:     s.Path,
		Domain:   s.Domain,
		Lifetime: s.Lifetime,
		Secure:   s.Secure,
		HTTPOnly: s.HTTPOnly,
	})
	k.sessions = m
	k.container.BindInstance(ServiceSessionManager, m)
	return nil
}

// initDatabase connects the default connection, if one is configured.
func (k *Kernel) initDatabase(ctx context.Context) error {
	cfg, ok := k.settings.Database.DefaultConnection()
	if !ok {
		return nil
	}
	name := k.settings.Database.Default

	if _, err := k.db.Connect(ctx, name, cfg); err != nil {
		if errors.Is(err, db.ErrMissingCredentials) {
			return &ConfigurationError{Key: "database.connections." + name, Err: err, Message: err.Error()}
		}
		return fmt.Errorf("kernel: %w", err)
	}
	k.db.SetDefault(name)
	k.shutdownHooks = append(k.shutdownHooks, k.db.Shutdown())

	if k.migrations != nil {
		if err := k.db.Migrate(ctx, name, k.migrations, cfg.WithDefaults().MigrationsTable, k.logger); err != nil {
			return fmt.Errorf("kernel: migrate %q: %w", name, err)
		}
	}
	return nil
}

func (k *Kernel) buildMux() chi.Router {
	r := chi.NewRouter()
	for _, s := range k.statics {
		r.Handle(s.pattern, s.handler)
	}
	if h := k.health; h != nil {
		checks := make(health.Checks, len(h.checks)+1)
		for name, fn := range h.checks {
			checks[name] = fn
		}
		if len(k.db.Names()) > 0 {
			if _, exists := checks["db"]; !exists {
				checks["db"] = k.db.Healthcheck()
			}
		}
		if k.sessions != nil {
			if hc, ok := k.sessions.Store().(interface{ Healthcheck(context.Context) error }); ok {
				if _, exists := checks["session"]; !exists {
					checks["session"] = hc.Healthcheck
				}
			}
		}
		r.Get(h.livenessPath, health.LivenessHandler())
		r.Get(h.readinessPath, health.ReadinessHandler(checks, health.WithLogger(k.logger)))
	}
	r.Handle("/*", http.HandlerFunc(k.dispatch))
	r.Handle("/", http.HandlerFunc(k.dispatch))
	return r
}

// ServeHTTP implements http.Handler. The kernel boots on first use; a
// failed boot answers every request with 500.
func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := k.Boot(r.Context()); err != nil {
		k.Logger().ErrorContext(r.Context(), "kernel boot failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	k.mux.ServeHTTP(w, r)
}

// dispatch runs one dispatch cycle. Any failure, including a panic, ends
// the cycle in the error router.
func (k *Kernel) dispatch(w http.ResponseWriter, r *http.Request) {
	c := &requestContext{
		request:  r,
		output:   NewResponseContext(w, k.settings.App.Buffering),
		scope:    k.container.Scope(),
		logger:   k.logger,
		errors:   k.errors,
		router:   k.router,
		sessions: k.sessions,
		cookies:  k.cookies,
		location: k.location,
	}

	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			k.fail(c, k.errors.Recovered(v))
		}
	}()

	if err := k.handle(c); err != nil {
		k.fail(c, err)
	}
}

func (k *Kernel) handle(c *requestContext) error {
	input, err := k.input.read(c.request)
	if err != nil {
		return err
	}
	c.input = input

	route := k.router.Parse(c.request)
	if !route.Found() {
		return NewKernelError("action is not defined", ErrActionNotDefined)
	}
	route = k.input.cleanRoute(route)
	c.route = route
	input.Set(SourceParams, route.Values())
	k.bindScope(c)

	if err := k.middleware.HandleBefore(c); err != nil {
		return err
	}

	ctrl, err := k.resolveController(c)
	if err != nil {
		return err
	}
	action, err := lookupAction(ctrl, route.Controller, route.Action)
	if err != nil {
		return err
	}

	lang, _ := route.Param(LangParam)
	c.view = NewView(k.renderer, route.Controller, k.settings.App.DefaultLayout, route.Action, lang, k.router.BaseURL(c.request))
	c.view.Location = k.location
	c.scope.BindInstance(ServiceView, c.view)

	if init, ok := ctrl.(Initializer); ok {
		if err := init.Init(c); err != nil {
			return err
		}
	}
	if err := action(c); err != nil {
		return err
	}
	if err := k.middleware.HandleAfter(c); err != nil {
		return err
	}
	if err := c.saveSession(); err != nil {
		return err
	}
	return c.output.Flush()
}

// bindScope makes the request services resolvable from the request scope.
func (k *Kernel) bindScope(c *requestContext) {
	s := c.scope
	s.BindInstance(ServiceRequest, c.request)
	s.BindInstance(ServiceResponse, c.output)
	s.BindInstance(ServiceRoute, c.route)
	s.BindInstance(ServiceInput, c.input)
	s.BindInstance(ServiceContext, Context(c))
	s.Bind(ServiceSession, func(Resolver) (any, error) {
		return c.Session()
	}, Shared)
}

func (k *Kernel) resolveController(c *requestContext) (Controller, error) {
	name := c.route.Controller
	notFound := NewKernelError(fmt.Sprintf("controller %s does not exist", name), ErrControllerNotFound)
	if !c.scope.Has(ControllerService(name)) {
		return nil, notFound
	}
	v, err := c.scope.Resolve(ServiceController)
	if err != nil {
		return nil, err
	}
	ctrl, ok := v.(Controller)
	if !ok {
		return nil, notFound
	}
	return ctrl, nil
}

// fail hands err to the error router. Once the response is committed
// only a log line is possible.
func (k *Kernel) fail(c *requestContext, err error) {
	c.output.Discard()
	if c.output.Committed() {
		k.logger.ErrorContext(c.request.Context(), "request failed after response was committed",
			slog.String("path", c.request.URL.Path),
			slog.String("route", c.route.String()),
			slog.Any("error", err),
		)
		return
	}
	k.errors.Handle(c.output.Unwrap(), c.request, err)
}

// Run boots the kernel and serves HTTP until ctx is cancelled or the
// process receives SIGINT or SIGTERM. Calling Run again is a no-op.
func (k *Kernel) Run(ctx context.Context, opts ...RunOption) error {
	if !k.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := k.Boot(ctx); err != nil {
		return err
	}

	cfg := newRunConfig(opts...)
	if cfg.address == "" {
		cfg.address = k.settings.Server.Address
	}
	if cfg.shutdownTimeout == 0 {
		cfg.shutdownTimeout = k.settings.Server.ShutdownTimeout
	}
	if cfg.baseCtx == nil {
		cfg.baseCtx = ctx
	}

	return runServer(runtimeConfig{
		handler:         k,
		address:         cfg.address,
		logger:          k.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		shutdownHooks:   append(cfg.shutdownHooks, k.shutdownHooks...),
		baseCtx:         cfg.baseCtx,
	})
}

// Shutdown runs the cleanup hooks registered during boot: log files,
// session stores and database pools.
func (k *Kernel) Shutdown(ctx context.Context) error {
	var errs []error
	for _, hook := range k.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeHook(c io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}
