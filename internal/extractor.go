package internal

import (
	"fmt"
	"strings"
)

// ExtractorSource reads one candidate value from a dispatch context.
// Returns ("", false) when the value is absent.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract returns the first non-empty value any source yields.
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func present(v string) (string, bool) {
	return v, v != ""
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return present(c.Request().Header.Get(name))
	}
}

// FromQuery reads a GET parameter.
func FromQuery(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return present(c.Query(name))
	}
}

// FromForm reads a POST parameter.
func FromForm(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return present(c.Form(name))
	}
}

// FromParam reads a route parameter.
func FromParam(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		return present(c.Param(name))
	}
}

// FromInput reads key from the first input source that has it.
func FromInput(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		switch v := c.InputValue(key).(type) {
		case nil:
			return "", false
		case string:
			return present(v)
		default:
			return present(fmt.Sprint(v))
		}
	}
}

// FromCookie reads a plain cookie.
func FromCookie(name string) ExtractorSource {
	return func(c Context) (string, bool) {
		v, err := c.Cookie(name)
		if err != nil {
			return "", false
		}
		return present(v)
	}
}

// FromSession reads a session value, formatting non-string values.
// It starts the session when none is active.
func FromSession(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		sess, err := c.Session()
		if err != nil {
			return "", false
		}
		val, ok := sess.GetValue(key)
		if !ok || val == nil {
			return "", false
		}
		if s, ok := val.(string); ok {
			return present(s)
		}
		return present(fmt.Sprint(val))
	}
}

// FromBearerToken reads a Bearer token from the Authorization header.
// The scheme is matched case-insensitively.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		auth := c.Request().Header.Get("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return present(auth[7:])
	}
}
