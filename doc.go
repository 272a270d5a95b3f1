// Package relay is a request-dispatch runtime for server-rendered Go
// applications.
//
// A [Kernel] maps every request path to a controller action by
// convention, /[lang/]controller/action/param..., or through explicit
// chi patterns registered with [WithRoute]. Controllers and middleware
// are services in a [Container]; each request gets its own scope so
// request-bound services never leak between concurrent requests.
//
// # Quick Start
//
//	type UserController struct {
//	    users *repository.Queries
//	}
//
//	func (u *UserController) Actions(a *relay.Actions) {
//	    a.Public("index", u.list)
//	    a.Public("show", u.show)
//	}
//
//	func (u *UserController) show(c relay.Context) error {
//	    user, err := u.users.GetUser(c, c.Param("id"))
//	    if err != nil {
//	        return relay.ErrNotFound("")
//	    }
//	    return c.Render(map[string]any{"user": user}, "", false)
//	}
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	k := relay.New(
//	    relay.WithConfig(cfg),
//	    relay.WithRouteParams("user", "show", "id"),
//	    relay.WithController("user", func(r relay.Resolver) (relay.Controller, error) {
//	        return &UserController{users: repo}, nil
//	    }),
//	)
//
//	if err := k.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Middleware
//
// Middleware are registered by name and enabled, in order, by the
// middleware setting. Before hooks run after routing and before the
// controller is resolved; after hooks run in the same order once the
// action succeeded:
//
//	relay.WithMiddleware("timing", middlewares.Timing())
//
//	# config.yaml
//	middleware: [request_id, timing]
//
// # Errors
//
// Actions return errors. A [ResponseError] answers with its status code,
// anything else answers 401. Diagnostic pages are shown only when
// app.show_errors is enabled. Register [WithExceptionHandler] to take over
// error responses entirely.
//
// # Shutdown
//
// Run handles SIGINT and SIGTERM, drains the server and closes log files,
// session stores and database pools.
package relay
