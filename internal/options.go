package internal

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/relay/pkg/config"
	"github.com/dmitrymomot/relay/pkg/health"
	"github.com/dmitrymomot/relay/pkg/logger"
	"github.com/dmitrymomot/relay/pkg/session"
)

// Option configures a Kernel.
type Option func(*Kernel)

// WithSettings uses s as is instead of loading settings from the config
// and environment.
//
// Example:
//
//	s := relay.DefaultSettings()
//	s.App.ShowErrors = true
//	relay.New(relay.WithSettings(s))
func WithSettings(s Settings) Option {
	return func(k *Kernel) {
		k.settings = s
		k.settingsSet = true
	}
}

// WithConfig sets the config settings are decoded from. The config is
// also bound as the "config" service.
//
// Example:
//
//	cfg, err := config.Load("config.yaml")
//	relay.New(relay.WithConfig(cfg))
func WithConfig(cfg *config.Config) Option {
	return func(k *Kernel) {
		if cfg != nil {
			k.config = cfg
		}
	}
}

// WithLogger sets a fully custom logger instead of the one built from
// the log settings.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithLogExtractors adds context extractors to the logger built from the
// log settings. Extractors pull values such as the request ID from context.
func WithLogExtractors(extractors ...logger.ContextExtractor) Option {
	return func(k *Kernel) {
		k.extractors = append(k.extractors, extractors...)
	}
}

// WithRenderer sets the template renderer used by views.
func WithRenderer(r Renderer) Option {
	return func(k *Kernel) {
		if r != nil {
			k.renderer = r
		}
	}
}

// WithController registers a controller under name. A fresh controller
// is built for every dispatch.
//
// Example:
//
//	relay.New(
//	    relay.WithController("user", func(r relay.Resolver) (relay.Controller, error) {
//	        db, err := relay.Resolve[*db.Manager](r, relay.ServiceDB)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return &UserController{db: db}, nil
//	    }),
//	)
func WithController(name string, f ControllerFactory) Option {
	return func(k *Kernel) {
		if name != "" && f != nil {
			k.controllers[strings.ToLower(name)] = f
		}
	}
}

// WithMiddleware registers a middleware under name. Only names listed in
// the middleware setting run, in the order listed there.
func WithMiddleware(name string, f MiddlewareFactory) Option {
	return func(k *Kernel) {
		if name != "" && f != nil {
			k.middlewares[strings.ToLower(name)] = f
		}
	}
}

// WithInit adds a hook run during boot after the core services are bound.
// Hooks may add or replace bindings on k.Container().
func WithInit(fn func(k *Kernel) error) Option {
	return func(k *Kernel) {
		if fn != nil {
			k.initHooks = append(k.initHooks, fn)
		}
	}
}

// WithExceptionHandler registers a custom exception handler. Once any is
// registered, the default error response is no longer written.
func WithExceptionHandler(h ExceptionHandler) Option {
	return func(k *Kernel) {
		if h != nil {
			k.handlers = append(k.handlers, h)
		}
	}
}

// WithRoute maps a chi pattern to controller/action ahead of the path
// convention. Named pattern parameters become route parameters.
//
// Example:
//
//	relay.WithRoute("/u/{id}", "user", "show")
func WithRoute(pattern, controller, action string) Option {
	return func(k *Kernel) {
		k.routes = append(k.routes, routeOverride{pattern: pattern, controller: controller, action: action})
	}
}

// WithRouteParams names the positional parameters of controller/action.
//
// Example:
//
//	relay.WithRouteParams("user", "show", "id")
//	// /user/show/5 -> Param("id") == "5"
func WithRouteParams(controller, action string, names ...string) Option {
	return func(k *Kernel) {
		k.routeParams = append(k.routeParams, routeParams{controller: controller, action: action, names: names})
	}
}

// WithSessionStore makes a session backend selectable by the session.type
// setting for this kernel only.
func WithSessionStore(kind string, f session.StoreFactory) Option {
	return func(k *Kernel) {
		if kind != "" && f != nil {
			k.sessionStores[kind] = f
		}
	}
}

// WithMigrations applies the goose migrations in fsys to the default
// database connection during boot.
//
// Example:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	sub, _ := fs.Sub(migrations, "migrations")
//	relay.New(relay.WithMigrations(sub))
func WithMigrations(fsys fs.FS) Option {
	return func(k *Kernel) {
		k.migrations = fsys
	}
}

// WithStaticFiles mounts a static file handler at the given pattern,
// outside the dispatch cycle. Directory listings are disabled.
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
	return func(k *Kernel) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			panic(err)
		}
		prefix := strings.TrimSuffix(strings.TrimSuffix(pattern, "*"), "/")
		fileServer := http.StripPrefix(prefix, http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			fileServer.ServeHTTP(w, r)
		})

		k.statics = append(k.statics, staticMount{handler: handler, pattern: pattern})
	}
}

const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// HealthOption configures the health endpoints.
type HealthOption func(*healthConfig)

// WithHealthChecks serves liveness and readiness probes outside the
// dispatch cycle. The default database connection is checked
// automatically when one is configured.
//
// Example:
//
//	relay.WithHealthChecks(
//	    relay.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(k *Kernel) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			checks:        make(health.Checks),
		}
		for _, opt := range opts {
			opt(cfg)
		}
		k.health = cfg
	}
}

// WithLivenessPath overrides the liveness probe path.
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath overrides the readiness probe path.
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if name != "" && fn != nil {
			c.checks[name] = fn
		}
	}
}
