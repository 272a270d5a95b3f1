package internal

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Param is a single named route parameter.
type Param struct {
	Name  string
	Value string
}

// Route is the dispatch target derived from a request path.
// The zero Route means no route was resolved.
type Route struct {
	Controller string
	Action     string
	Params     []Param
}

// Found reports whether the route names an action to dispatch.
func (r Route) Found() bool {
	return r.Controller != "" && r.Action != ""
}

// Param returns the value of the named parameter.
func (r Route) Param(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Values returns the parameters as ordered Values.
func (r Route) Values() *Values {
	v := NewValues()
	for _, p := range r.Params {
		v.Set(p.Name, p.Value)
	}
	return v
}

func (r Route) String() string {
	if !r.Found() {
		return "<none>"
	}
	return r.Controller + "/" + r.Action
}

// LangParam is the route parameter holding the request language.
const LangParam = "lang"

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithBasePath sets the deployment path prefix stripped before parsing.
func WithBasePath(path string) RouterOption {
	return func(r *Router) {
		r.basePath = "/" + strings.Trim(path, "/")
		if r.basePath == "/" {
			r.basePath = ""
		}
	}
}

// WithBaseURL sets an absolute base URL returned by BaseURL as is.
func WithBaseURL(u string) RouterOption {
	return func(r *Router) {
		r.baseURL = strings.TrimRight(u, "/")
	}
}

// WithLanguages enables the optional leading language segment.
// def is used when the path carries no language.
func WithLanguages(def string, langs ...string) RouterOption {
	return func(r *Router) {
		r.defaultLang = def
		r.languages = append([]string(nil), langs...)
		if def != "" && !slices.Contains(r.languages, def) {
			r.languages = append(r.languages, def)
		}
	}
}

// WithDefaultAction sets the action used when the path names only a controller.
func WithDefaultAction(name string) RouterOption {
	return func(r *Router) {
		if name != "" {
			r.defaultAction = name
		}
	}
}

type override struct {
	controller string
	action     string
}

// Router maps request paths to controller actions.
//
// Paths follow the /[lang/]controller/action/param... convention unless a
// registered override pattern matches first. Overrides use chi pattern
// syntax, e.g. "/u/{id}" or "/files/*".
type Router struct {
	overrides     *chi.Mux
	targets       map[string]override
	params        map[string][]string
	basePath      string
	baseURL       string
	defaultAction string
	defaultLang   string
	languages     []string
	mu            sync.RWMutex
}

// NewRouter creates a Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		overrides:     chi.NewMux(),
		targets:       make(map[string]override),
		params:        make(map[string][]string),
		defaultAction: "index",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var noopHandler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// Handle registers an override pattern dispatching to controller/action.
// Named pattern parameters become route parameters.
func (r *Router) Handle(pattern, controller, action string) (err error) {
	if controller == "" || action == "" {
		return fmt.Errorf("router: override %q needs a controller and an action", pattern)
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// chi reports invalid patterns by panicking.
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("router: invalid pattern %q: %v", pattern, v)
		}
	}()
	if _, exists := r.targets[pattern]; !exists {
		r.overrides.Handle(pattern, noopHandler)
	}
	r.targets[pattern] = override{controller: strings.ToLower(controller), action: action}
	return nil
}

// Params names the positional parameters of controller/action.
// Extra segments beyond the names keep their index as name.
func (r *Router) Params(controller, action string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[strings.ToLower(controller)+"/"+action] = append([]string(nil), names...)
}

// Parse resolves the route of an HTTP request.
func (r *Router) Parse(req *http.Request) Route {
	return r.ParseURL(req.URL.Path)
}

// ParseURL resolves path into a Route. It never fails: unresolvable
// paths yield the zero Route.
func (r *Router) ParseURL(path string) Route {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = r.stripBase(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if route, ok := r.matchOverride(path); ok {
		return route
	}

	segments := splitPath(path)
	var lang string
	if len(r.languages) > 0 {
		lang = r.defaultLang
		if len(segments) > 0 && slices.Contains(r.languages, segments[0]) {
			lang, segments = segments[0], segments[1:]
		}
	}
	if len(segments) == 0 {
		return Route{}
	}

	route := Route{
		Controller: strings.ToLower(segments[0]),
		Action:     r.defaultAction,
	}
	if len(segments) > 1 {
		route.Action = segments[1]
	}
	if lang != "" {
		route.Params = append(route.Params, Param{Name: LangParam, Value: lang})
	}

	var rest []string
	if len(segments) > 2 {
		rest = segments[2:]
	}
	names := r.params[route.Controller+"/"+route.Action]
	for i, v := range rest {
		name := strconv.Itoa(i)
		if i < len(names) {
			name = names[i]
		}
		route.Params = append(route.Params, Param{Name: name, Value: v})
	}
	return route
}

func (r *Router) matchOverride(path string) (Route, bool) {
	if len(r.targets) == 0 {
		return Route{}, false
	}
	if path == "" {
		path = "/"
	}
	rctx := chi.NewRouteContext()
	pattern := r.overrides.Find(rctx, http.MethodGet, path)
	if pattern == "" {
		return Route{}, false
	}
	target, ok := r.targets[pattern]
	if !ok {
		return Route{}, false
	}

	route := Route{Controller: target.controller, Action: target.action}
	if len(r.languages) > 0 {
		route.Params = append(route.Params, Param{Name: LangParam, Value: r.defaultLang})
	}
	for i, key := range rctx.URLParams.Keys {
		val := rctx.URLParams.Values[i]
		if u, err := url.PathUnescape(val); err == nil {
			val = u
		}
		route.Params = append(route.Params, Param{Name: key, Value: val})
	}
	return route, true
}

func (r *Router) stripBase(path string) string {
	if r.basePath == "" {
		return path
	}
	if path == r.basePath {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, r.basePath+"/"); ok {
		return "/" + rest
	}
	return path
}

// BasePath returns the configured deployment path prefix.
func (r *Router) BasePath() string {
	return r.basePath
}

// BaseURL returns the absolute URL the application is served under.
// Without a configured base URL it is derived from the request.
func (r *Router) BaseURL(req *http.Request) string {
	if r.baseURL != "" {
		return r.baseURL
	}
	if req == nil {
		return r.basePath
	}
	scheme := "http"
	if req.TLS != nil || strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + req.Host + r.basePath
}

func splitPath(path string) []string {
	var out []string
	for seg := range strings.SplitSeq(path, "/") {
		if seg == "" {
			continue
		}
		if u, err := url.PathUnescape(seg); err == nil {
			seg = u
		}
		out = append(out, seg)
	}
	return out
}
