// Command relay-example serves a small guestbook on top of a relay kernel.
//
//	RELAY_APP_SHOW_ERRORS=true go run ./cmd/relay-example
//
// Routes:
//
//	GET  /                      -> home/index
//	GET  /guestbook             -> guestbook/index
//	POST /guestbook/sign        -> guestbook/sign (form or JSON: name, message)
//	GET  /guestbook/entry/3     -> guestbook/entry, Param("id") == "3"
//	GET  /g/3                   -> guestbook/entry through a route override
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/relay"
	"github.com/dmitrymomot/relay/middlewares"
	"github.com/dmitrymomot/relay/pkg/config"
)

//go:embed config.yaml
var defaultConfig []byte

func main() {
	if err := run(); err != nil {
		slog.Error("relay-example stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Parse(defaultConfig)
	if err != nil {
		return err
	}
	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	book := &guestbook{}
	k := relay.New(
		relay.WithConfig(cfg),
		relay.WithLogExtractors(middlewares.RequestIDExtractor()),
		relay.WithMiddleware("request_id", middlewares.RequestID()),
		relay.WithMiddleware("secure_headers", middlewares.SecureHeaders()),
		relay.WithMiddleware("timing", middlewares.Timing()),
		relay.WithController("home", func(relay.Resolver) (relay.Controller, error) {
			return homeController{}, nil
		}),
		relay.WithController("guestbook", func(relay.Resolver) (relay.Controller, error) {
			return &guestbookController{book: book}, nil
		}),
		relay.WithRoute("/", "home", "index"),
		relay.WithRoute("/g/{id}", "guestbook", "entry"),
		relay.WithRouteParams("guestbook", "entry", "id"),
		relay.WithHealthChecks(),
	)
	return k.Run(context.Background())
}

type homeController struct{}

func (homeController) Actions(a *relay.Actions) {
	a.Public("index", func(c relay.Context) error {
		return c.Component(page("relay", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, err := io.WriteString(w, `<p><a href="`+templ.EscapeString(c.BaseURL())+`/guestbook">Guestbook</a></p>`)
			return err
		})))
	})
}

type entry struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type guestbook struct {
	entries []entry
	mu      sync.RWMutex
}

func (g *guestbook) add(e entry) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, e)
	return len(g.entries)
}

func (g *guestbook) get(id int) (entry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 1 || id > len(g.entries) {
		return entry{}, false
	}
	return g.entries[id-1], true
}

func (g *guestbook) all() []entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]entry(nil), g.entries...)
}

type guestbookController struct {
	book *guestbook
}

func (g *guestbookController) Actions(a *relay.Actions) {
	a.Public("index", g.index)
	a.Public("sign", g.sign)
	a.Public("entry", g.entry)
	a.Internal("requirePost", g.requirePost)
}

func (g *guestbookController) Init(c relay.Context) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	visits, _ := sess.GetValue("visits")
	n, _ := visits.(float64)
	sess.SetValue("visits", n+1)
	return nil
}

func (g *guestbookController) index(c relay.Context) error {
	return c.JSON(g.book.all())
}

func (g *guestbookController) requirePost(c relay.Context) error {
	if c.Request().Method != http.MethodPost {
		return relay.NewResponseError(http.StatusMethodNotAllowed, "")
	}
	return nil
}

func (g *guestbookController) sign(c relay.Context) error {
	if err := g.requirePost(c); err != nil {
		return err
	}
	name, message := c.InputValue("name"), c.InputValue("message")
	if name == nil || message == nil {
		return relay.NewResponseError(http.StatusUnprocessableEntity, "name and message are required")
	}
	id := g.book.add(entry{Name: fmt.Sprint(name), Message: fmt.Sprint(message)})
	c.Logger().InfoContext(c, "guestbook signed", slog.Int("id", id))
	return c.Redirect(http.StatusSeeOther, c.BaseURL()+"/guestbook/entry/"+strconv.Itoa(id))
}

func (g *guestbookController) entry(c relay.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return relay.NewResponseErrorWrap(http.StatusBadRequest, "invalid entry id", err)
	}
	e, ok := g.book.get(id)
	if !ok {
		if err := c.Trigger(relay.SeverityNotice, "entry "+strconv.Itoa(id)+" requested but missing"); err != nil {
			return errors.Join(relay.ErrNotFound(""), err)
		}
		return relay.ErrNotFound("")
	}
	return c.JSON(e)
}

func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html><html><head><title>"+templ.EscapeString(title)+"</title></head><body>"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}
