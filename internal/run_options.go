package internal

import (
	"context"
	"log/slog"
	"time"
)

// RunOption configures the server runtime.
type RunOption func(*runConfig)

type runConfig struct {
	baseCtx         context.Context
	logger          *slog.Logger
	domains         map[string]*Kernel
	fallback        *Kernel
	address         string
	shutdownHooks   []func(context.Context) error
	shutdownTimeout time.Duration
}

func newRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		domains: make(map[string]*Kernel),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Address sets the HTTP server address.
// Kernel.Run defaults to the server.address setting.
func Address(addr string) RunOption {
	return func(c *runConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

// Logger sets the logger of the multi-domain server.
// Kernel.Run always logs through the kernel logger.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// It applies to both the HTTP server and shutdown hooks.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// ShutdownHook registers a cleanup function to run during shutdown,
// before the hooks of the kernels themselves.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Domain maps a host pattern to a Kernel. Only Run uses it.
// Patterns: "api.example.com" (exact) or "*.example.com" (wildcard).
//
// Example:
//
//	relay.Run(ctx,
//	    relay.Domain("api.acme.com", api),
//	    relay.Domain("*.acme.com", tenants),
//	)
func Domain(pattern string, k *Kernel) RunOption {
	return func(c *runConfig) {
		if pattern != "" && k != nil {
			c.domains[pattern] = k
		}
	}
}

// Fallback sets the Kernel serving hosts no Domain matches.
// Without domains the fallback serves every request.
func Fallback(k *Kernel) RunOption {
	return func(c *runConfig) {
		if k != nil {
			c.fallback = k
		}
	}
}

// WithContext sets the base context for signal handling.
// Defaults to the context passed to Run.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
