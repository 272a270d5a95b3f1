package internal

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"slices"
	"sync"
)

// HeaderField is a single response header.
type HeaderField struct {
	Name  string
	Value string
}

// ResponseContext accumulates the response of one dispatch.
//
// Headers are kept in the order they were first set; setting a header again
// replaces its value. In buffered mode everything written by the action is
// held until Flush, which sends the status, the headers, the appended body
// chunks and then the buffered output. In streaming mode the first Write
// commits status and headers and later writes go straight to the client.
type ResponseContext struct {
	w         http.ResponseWriter
	headers   []HeaderField
	cookies   []string
	body      []string
	buf       bytes.Buffer
	status    int
	size      int64
	buffered  bool
	committed bool
	mu        sync.Mutex
}

// NewResponseContext creates a ResponseContext writing to w.
func NewResponseContext(w http.ResponseWriter, buffered bool) *ResponseContext {
	return &ResponseContext{
		w:        w,
		status:   http.StatusOK,
		buffered: buffered,
	}
}

// SetHeader sets a response header. Last write wins.
// Headers set after the response was committed are recorded but not sent.
func (rc *ResponseContext) SetHeader(name, value string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	name = http.CanonicalHeaderKey(name)
	if i := slices.IndexFunc(rc.headers, func(h HeaderField) bool { return h.Name == name }); i >= 0 {
		rc.headers[i].Value = value
		return
	}
	rc.headers = append(rc.headers, HeaderField{Name: name, Value: value})
}

// AddCookie queues a Set-Cookie header. Queued cookies are sent with the
// status line and dropped by Discard. Invalid cookies are ignored.
func (rc *ResponseContext) AddCookie(ck *http.Cookie) {
	rc.addSetCookie(ck.String())
}

func (rc *ResponseContext) addSetCookie(v string) {
	if v == "" {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cookies = append(rc.cookies, v)
}

// Cookies returns the queued Set-Cookie values.
func (rc *ResponseContext) Cookies() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.cookies)
}

// Header returns the value set for name.
func (rc *ResponseContext) Header(name string) (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	name = http.CanonicalHeaderKey(name)
	for _, h := range rc.headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Headers returns a copy of the headers in the order they were first set.
func (rc *ResponseContext) Headers() []HeaderField {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.headers)
}

// SetStatus sets the status code sent on flush or first streamed write.
func (rc *ResponseContext) SetStatus(code int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.status = code
}

// Status returns the response status code.
func (rc *ResponseContext) Status() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.status
}

// AppendBody adds a body chunk. Chunks are sent in order on Flush,
// ahead of buffered action output.
func (rc *ResponseContext) AppendBody(chunk string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.body = append(rc.body, chunk)
}

// Body returns the appended body chunks.
func (rc *ResponseContext) Body() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.body)
}

// Buffered returns the action output held for Flush.
func (rc *ResponseContext) Buffered() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.buf.String()
}

// Write implements io.Writer for action output.
func (rc *ResponseContext) Write(p []byte) (int, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.buffered {
		return rc.buf.Write(p)
	}
	rc.commit()
	n, err := rc.w.Write(p)
	rc.size += int64(n)
	return n, err
}

// WriteString writes s as action output.
func (rc *ResponseContext) WriteString(s string) (int, error) {
	return rc.Write([]byte(s))
}

// Flush sends everything accumulated so far to the client.
func (rc *ResponseContext) Flush() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.commit()
	for _, chunk := range rc.body {
		n, err := io.WriteString(rc.w, chunk)
		rc.size += int64(n)
		if err != nil {
			return err
		}
	}
	rc.body = nil

	if rc.buf.Len() > 0 {
		n, err := rc.w.Write(rc.buf.Bytes())
		rc.size += int64(n)
		rc.buf.Reset()
		if err != nil {
			return err
		}
	}
	if f, ok := rc.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Discard drops buffered output, body chunks and cookies that were not
// sent yet.
func (rc *ResponseContext) Discard() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cookies = nil
	rc.body = nil
	rc.buf.Reset()
}

// Committed reports whether the status line was already sent.
func (rc *ResponseContext) Committed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.committed
}

// Size returns the number of body bytes sent to the client.
func (rc *ResponseContext) Size() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.size
}

// commit writes status and headers once. Callers hold mu.
func (rc *ResponseContext) commit() {
	if rc.committed {
		return
	}
	rc.committed = true
	h := rc.w.Header()
	for _, f := range rc.headers {
		h.Set(f.Name, f.Value)
	}
	for _, v := range rc.cookies {
		h.Add("Set-Cookie", v)
	}
	rc.w.WriteHeader(rc.status)
}

// Hijack implements http.Hijacker for streaming handlers.
func (rc *ResponseContext) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rc.w.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap returns the underlying http.ResponseWriter.
func (rc *ResponseContext) Unwrap() http.ResponseWriter {
	return rc.w
}

// headerSink is an http.ResponseWriter that only collects headers.
// It lets writer-based helpers queue cookies on a ResponseContext.
type headerSink struct {
	header http.Header
}

func (s headerSink) Header() http.Header       { return s.header }
func (headerSink) Write(p []byte) (int, error) { return len(p), nil }
func (headerSink) WriteHeader(int)             {}

// queueCookies runs fn against a headerSink and queues every Set-Cookie
// header it produced.
func (rc *ResponseContext) queueCookies(fn func(w http.ResponseWriter) error) error {
	sink := headerSink{header: make(http.Header)}
	err := fn(sink)
	for _, v := range sink.header.Values("Set-Cookie") {
		rc.addSetCookie(v)
	}
	return err
}
