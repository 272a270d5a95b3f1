package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrymomot/relay/pkg/sanitizer"
)

const (
	defaultMaxBodySize   = 10 << 20
	multipartMaxMemory   = 32 << 20
	formContentType      = "application/x-www-form-urlencoded"
	multipartContentType = "multipart/form-data"
)

// inputReader collects and sanitizes the input of a request.
type inputReader struct {
	maxBody int64
	tidy    sanitizer.Options
}

// read builds the RequestContext for r. The body is restored on r so
// handlers can read it again.
func (ir inputReader) read(r *http.Request) (*RequestContext, error) {
	body, err := ir.readBody(r)
	if err != nil {
		return nil, err
	}

	rc := NewRequestContext()
	get := ParseOrderedQuery(r.URL.RawQuery)
	post, err := ir.parseForm(r, body)
	if err != nil {
		return nil, err
	}

	cookies := NewValues()
	for _, c := range r.Cookies() {
		if _, seen := cookies.Get(c.Name); !seen {
			cookies.Set(c.Name, c.Value)
		}
	}

	merged := NewValues()
	merged.merge(get)
	merged.merge(post)

	rc.Set(SourceGet, ir.clean(get))
	rc.Set(SourcePost, ir.clean(post))
	rc.Set(SourceCookie, ir.clean(cookies))
	rc.Set(SourceRequest, ir.clean(merged))
	if js, ok := parseJSONBody(body); ok {
		rc.Set(SourceJSON, ir.clean(js))
	}
	return rc, nil
}

func (ir inputReader) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	limit := ir.maxBody
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, NewResponseError(http.StatusBadRequest, "", WithError(err))
	}
	if int64(len(body)) > limit {
		return nil, NewResponseError(http.StatusRequestEntityTooLarge, "")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func (ir inputReader) parseForm(r *http.Request, body []byte) (*Values, error) {
	if len(body) == 0 {
		return NewValues(), nil
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return NewValues(), nil
	}

	switch mediaType {
	case formContentType:
		return ParseOrderedQuery(string(body)), nil
	case multipartContentType:
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			return nil, NewResponseError(http.StatusBadRequest, "malformed multipart body", WithError(err))
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if r.MultipartForm == nil {
			return NewValues(), nil
		}
		return valuesFromForm(r.MultipartForm.Value), nil
	default:
		return NewValues(), nil
	}
}

// parseJSONBody decodes body when it is a JSON object or array.
func parseJSONBody(body []byte) (*Values, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, false
	}
	return valuesFromJSON(doc)
}

func (ir inputReader) clean(v *Values) *Values {
	out := NewValues()
	for _, k := range v.Keys() {
		val, _ := v.Get(k)
		out.Set(k, sanitizer.TidyValue(val, ir.tidy))
	}
	return out
}

// cleanRoute returns r with every parameter value sanitized.
func (ir inputReader) cleanRoute(r Route) Route {
	params := make([]Param, len(r.Params))
	for i, p := range r.Params {
		params[i] = Param{Name: p.Name, Value: sanitizer.Tidy(p.Value, ir.tidy)}
	}
	r.Params = params
	return r
}
