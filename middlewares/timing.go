package middlewares

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relay/internal"
)

type timingKey struct{}

// Timing measures the dispatch of every successful request. The before
// hook records the start time; the after hook sets the Server-Timing
// header and logs the duration with the route.
//
// The logger is resolved from the container when the middleware is built.
func Timing() internal.MiddlewareFactory {
	return func(r internal.Resolver) (internal.Middleware, error) {
		log, err := internal.Resolve[*slog.Logger](r, internal.ServiceLogger)
		if err != nil {
			return nil, err
		}
		return &timing{log: log, now: time.Now}, nil
	}
}

type timing struct {
	log *slog.Logger
	now func() time.Time
}

func (t *timing) Before(c internal.Context) error {
	c.Set(timingKey{}, t.now())
	return nil
}

func (t *timing) After(c internal.Context) error {
	start, ok := c.Get(timingKey{}).(time.Time)
	if !ok {
		return nil
	}
	d := t.now().Sub(start)
	c.SetHeader("Server-Timing", fmt.Sprintf("app;dur=%.3f", float64(d.Microseconds())/1000))
	t.log.InfoContext(c, "request dispatched",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Request().URL.Path),
		slog.String("route", c.Route().String()),
		slog.Duration("duration", d),
	)
	return nil
}

// Elapsed returns the time since the Timing before hook ran, or zero
// when the middleware is not enabled.
func Elapsed(c internal.Context) time.Duration {
	start, ok := c.Get(timingKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
