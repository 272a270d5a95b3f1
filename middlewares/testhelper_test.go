package middlewares_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/relay/internal"
)

type pageController struct {
	index internal.HandlerFunc
}

func (p *pageController) Actions(a *internal.Actions) {
	a.Public("index", p.index)
	a.Public("fail", func(internal.Context) error {
		return internal.NewResponseError(http.StatusTeapot, "")
	})
}

// serve dispatches req through a kernel with the given middleware
// registered and enabled in order.
func serve(t *testing.T, req *http.Request, index internal.HandlerFunc, mws ...named) *httptest.ResponseRecorder {
	t.Helper()

	if index == nil {
		index = func(c internal.Context) error {
			return c.String("ok")
		}
	}

	s := internal.DefaultSettings()
	s.Session.Disabled = true
	opts := []internal.Option{
		internal.WithSettings(s),
		internal.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		internal.WithController("page", func(internal.Resolver) (internal.Controller, error) {
			return &pageController{index: index}, nil
		}),
	}
	for _, m := range mws {
		s.Middleware = append(s.Middleware, m.name)
		opts = append(opts, internal.WithMiddleware(m.name, m.factory))
	}
	opts[0] = internal.WithSettings(s)

	rec := httptest.NewRecorder()
	internal.New(opts...).ServeHTTP(rec, req)
	return rec
}

type named struct {
	name    string
	factory internal.MiddlewareFactory
}
