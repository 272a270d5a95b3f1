package internal

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Source identifies where a request value came from.
type Source int

const (
	SourceGet Source = iota
	SourcePost
	SourceCookie
	SourceRequest
	SourceJSON
	SourceParams
)

func (s Source) String() string {
	switch s {
	case SourceGet:
		return "get"
	case SourcePost:
		return "post"
	case SourceCookie:
		return "cookie"
	case SourceRequest:
		return "request"
	case SourceJSON:
		return "json"
	case SourceParams:
		return "params"
	default:
		return "source(" + strconv.Itoa(int(s)) + ")"
	}
}

// lookupOrder is the order Value searches sources in: route params first,
// then body sources, then the query string and cookies.
var lookupOrder = []Source{SourceParams, SourceJSON, SourcePost, SourceGet, SourceCookie}

// Values is an ordered key-value mapping. Keys are unique; setting an
// existing key replaces its value and keeps its position.
type Values struct {
	data map[string]any
	keys []string
}

// NewValues creates an empty Values.
func NewValues() *Values {
	return &Values{data: make(map[string]any)}
}

// Set stores val under key.
func (v *Values) Set(key string, val any) {
	if _, ok := v.data[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.data[key] = val
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.data[key]
	return val, ok
}

// String returns the value under key formatted as a string.
// Returns an empty string for missing keys and nil values.
func (v *Values) String(key string) string {
	val, ok := v.Get(key)
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// Keys returns the keys in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	return slices.Clone(v.keys)
}

// Len returns the number of keys.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Map returns a copy of the values as a plain map.
func (v *Values) Map() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return maps.Clone(v.data)
}

// merge copies every entry of other into v; entries of other shadow v.
func (v *Values) merge(other *Values) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		v.Set(k, other.data[k])
	}
}

// RequestContext holds the normalized input of one request, kept apart by source.
type RequestContext struct {
	sources map[Source]*Values
}

// NewRequestContext creates an empty RequestContext.
func NewRequestContext() *RequestContext {
	return &RequestContext{sources: make(map[Source]*Values)}
}

// Set replaces the values of a source.
func (rc *RequestContext) Set(src Source, vals *Values) {
	if vals == nil {
		vals = NewValues()
	}
	rc.sources[src] = vals
}

// Source returns the values collected from src. Never nil.
func (rc *RequestContext) Source(src Source) *Values {
	if vals, ok := rc.sources[src]; ok {
		return vals
	}
	return NewValues()
}

// Has reports whether src was populated for this request.
func (rc *RequestContext) Has(src Source) bool {
	_, ok := rc.sources[src]
	return ok
}

// Get returns key from a single source.
func (rc *RequestContext) Get(src Source, key string) (any, bool) {
	return rc.sources[src].Get(key)
}

// Value searches route params, JSON body, POST, GET and cookies, in that order.
func (rc *RequestContext) Value(key string) (any, bool) {
	for _, src := range lookupOrder {
		if val, ok := rc.sources[src].Get(key); ok {
			return val, true
		}
	}
	return nil, false
}

// Merged flattens all sources into one mapping. Later sources in the order
// cookie, GET, POST, JSON, params shadow earlier ones.
func (rc *RequestContext) Merged() *Values {
	out := NewValues()
	for _, src := range slices.Backward(lookupOrder) {
		out.merge(rc.sources[src])
	}
	return out
}

// ParseOrderedQuery parses a URL-encoded string into Values, keeping the
// order keys first appear in. Keys with several values map to []any.
func ParseOrderedQuery(raw string) *Values {
	out := NewValues()
	parsed, _ := url.ParseQuery(raw)
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, seen := out.Get(key); seen {
			continue
		}
		if vals, ok := parsed[key]; ok {
			out.Set(key, formValue(vals))
		}
	}
	return out
}

// valuesFromForm converts a parsed form into Values with keys sorted.
func valuesFromForm(form url.Values) *Values {
	out := NewValues()
	for _, key := range slices.Sorted(maps.Keys(form)) {
		out.Set(key, formValue(form[key]))
	}
	return out
}

func formValue(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	list := make([]any, len(vals))
	for i, s := range vals {
		list[i] = s
	}
	return list
}

// valuesFromJSON converts a decoded JSON document into Values.
// Objects keep their keys sorted, arrays are keyed by index.
// Scalars are not representable and yield false.
func valuesFromJSON(doc any) (*Values, bool) {
	out := NewValues()
	switch d := doc.(type) {
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(d)) {
			out.Set(key, d[key])
		}
	case []any:
		for i, item := range d {
			out.Set(strconv.Itoa(i), item)
		}
	default:
		return nil, false
	}
	return out, true
}
