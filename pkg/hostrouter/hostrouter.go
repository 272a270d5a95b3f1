// Package hostrouter dispatches requests to handlers by Host header.
//
// Patterns are either exact hosts ("api.acme.com") or wildcards
// ("*.acme.com"). A wildcard matches any depth of subdomain, and the most
// specific wildcard wins, so "*.eu.acme.com" beats "*.acme.com" for
// "shop.eu.acme.com". Hosts are compared lowercase and without port.
package hostrouter

import (
	"net"
	"net/http"
	"sort"
	"strings"
)

// Routes maps host patterns to handlers.
type Routes map[string]http.Handler

type wildcard struct {
	suffix  string // ".acme.com"
	handler http.Handler
}

// Router is an http.Handler that selects a handler by host.
type Router struct {
	exact     map[string]http.Handler
	wildcards []wildcard // longest suffix first
	fallback  http.Handler
}

// New builds a Router. Requests that match no pattern go to fallback,
// or receive 404 when fallback is nil. Blank patterns are ignored.
func New(routes Routes, fallback http.Handler) *Router {
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}
	r := &Router{
		exact:    make(map[string]http.Handler, len(routes)),
		fallback: fallback,
	}
	for pattern, h := range routes {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case pattern == "", h == nil:
		case strings.HasPrefix(pattern, "*."):
			r.wildcards = append(r.wildcards, wildcard{suffix: pattern[1:], handler: h})
		default:
			r.exact[pattern] = h
		}
	}
	sort.Slice(r.wildcards, func(i, j int) bool {
		return len(r.wildcards[i].suffix) > len(r.wildcards[j].suffix)
	})
	return r
}

// Handler returns the handler serving host and whether a pattern matched.
func (r *Router) Handler(host string) (http.Handler, bool) {
	host = Hostname(host)
	if h, ok := r.exact[host]; ok {
		return h, true
	}
	for _, w := range r.wildcards {
		if len(host) > len(w.suffix) && strings.HasSuffix(host, w.suffix) {
			return w.handler, true
		}
	}
	return r.fallback, false
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h, _ := r.Handler(req.Host)
	h.ServeHTTP(w, req)
}

// Hostname strips the port from a Host header value and lowercases it.
//
//	"Acme.com:8080" -> "acme.com"
//	"[::1]:8080"    -> "::1"
func Hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}
