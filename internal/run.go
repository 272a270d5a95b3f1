package internal

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/relay/pkg/hostrouter"
)

// Run serves several kernels from one HTTP server, selected by host,
// and blocks until shutdown. Every kernel is booted before the server
// starts; a boot failure aborts Run.
//
// Example:
//
//	api := relay.New(relay.WithController("user", newUserController))
//	site := relay.New(relay.WithController("page", newPageController))
//
//	err := relay.Run(ctx,
//	    relay.Domain("api.acme.com", api),
//	    relay.Fallback(site),
//	    relay.Address(":8080"),
//	)
func Run(ctx context.Context, opts ...RunOption) error {
	cfg := newRunConfig(opts...)

	var (
		handler http.Handler
		kernels []*Kernel
	)
	switch {
	case len(cfg.domains) > 0:
		routes := make(hostrouter.Routes, len(cfg.domains))
		for pattern, k := range cfg.domains {
			routes[pattern] = k
			kernels = append(kernels, k)
		}
		var fallback http.Handler
		if cfg.fallback != nil {
			fallback = cfg.fallback
			kernels = append(kernels, cfg.fallback)
		}
		handler = hostrouter.New(routes, fallback)
	case cfg.fallback != nil:
		handler = cfg.fallback
		kernels = append(kernels, cfg.fallback)
	default:
		return errors.New("relay.Run: no domains or fallback configured")
	}

	// A kernel mapped to several patterns is booted and shut down once.
	seen := make(map[*Kernel]bool, len(kernels))
	hooks := cfg.shutdownHooks
	for _, k := range kernels {
		if seen[k] {
			continue
		}
		seen[k] = true
		if err := k.Boot(ctx); err != nil {
			return err
		}
		k.running.Store(true)
		hooks = append(hooks, k.Shutdown)
	}

	log := cfg.logger
	if log == nil {
		log = kernels[0].Logger()
	}
	baseCtx := cfg.baseCtx
	if baseCtx == nil {
		baseCtx = ctx
	}

	return runServer(runtimeConfig{
		handler:         handler,
		address:         cfg.address,
		logger:          log,
		shutdownTimeout: cfg.shutdownTimeout,
		shutdownHooks:   hooks,
		baseCtx:         baseCtx,
	})
}
