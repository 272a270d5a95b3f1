package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Severity classifies runtime faults. Values are bit flags so a reporting
// mask can enable any combination.
type Severity uint

const (
	SeverityError Severity = 1 << iota
	SeverityWarning
	SeverityNotice
	SeverityStrict
	SeverityRecoverable
	SeverityDeprecated

	// SeverityAll enables every severity.
	SeverityAll = SeverityError | SeverityWarning | SeverityNotice |
		SeverityStrict | SeverityRecoverable | SeverityDeprecated
)

// Label returns the human-readable prefix used in runtime error messages.
func (s Severity) Label() string {
	switch s {
	case SeverityError:
		return "Fatal Error"
	case SeverityWarning:
		return "Warning"
	case SeverityNotice, SeverityStrict:
		return "Notice"
	case SeverityRecoverable:
		return "Catchable"
	default:
		return "Unknown Error"
	}
}

var severityNames = map[string]Severity{
	"error":       SeverityError,
	"warning":     SeverityWarning,
	"notice":      SeverityNotice,
	"strict":      SeverityStrict,
	"recoverable": SeverityRecoverable,
	"deprecated":  SeverityDeprecated,
	"all":         SeverityAll,
	"none":        0,
}

// ParseSeverity parses a "|"-separated list of severity names,
// e.g. "error|warning" or "all". An empty string yields SeverityAll.
func ParseSeverity(s string) (Severity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SeverityAll, nil
	}
	var mask Severity
	for part := range strings.SplitSeq(s, "|") {
		name := strings.ToLower(strings.TrimSpace(part))
		sev, ok := severityNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown severity %q", name)
		}
		mask |= sev
	}
	return mask, nil
}

// ExceptionHandler replaces the default error handling once registered.
type ExceptionHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorRouter is the single place request failures are turned into responses.
type ErrorRouter struct {
	logger     *slog.Logger
	handlers   []ExceptionHandler
	mask       Severity
	showErrors bool
	mu         sync.RWMutex
}

// NewErrorRouter creates an ErrorRouter escalating runtime errors enabled in mask.
// Diagnostic pages are rendered only when showErrors is true.
func NewErrorRouter(mask Severity, showErrors bool, logger *slog.Logger) *ErrorRouter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ErrorRouter{
		logger:     logger,
		mask:       mask,
		showErrors: showErrors,
	}
}

// AddHandler registers a custom exception handler.
// Once at least one handler is registered, handlers run in registration
// order and the default response is not written.
func (er *ErrorRouter) AddHandler(h ExceptionHandler) {
	if h == nil {
		return
	}
	er.mu.Lock()
	defer er.mu.Unlock()
	er.handlers = append(er.handlers, h)
}

// ShowErrors reports whether diagnostic pages are enabled.
func (er *ErrorRouter) ShowErrors() bool {
	return er.showErrors
}

// OnRuntimeError filters a runtime fault through the reporting mask.
// Returns nil when the severity is masked out, otherwise a *RuntimeError
// that must be propagated to Handle.
func (er *ErrorRouter) OnRuntimeError(sev Severity, message string, loc Location) error {
	if er.mask&sev == 0 {
		er.logger.Debug("runtime error masked",
			slog.String("severity", sev.Label()),
			slog.String("message", message),
			slog.String("location", loc.String()),
		)
		return nil
	}
	return &RuntimeError{
		Severity: sev,
		Message:  message,
		Location: loc,
		stack:    captureStack(1),
	}
}

// Recovered converts a recovered panic value into a *RuntimeError.
// Must be called from the deferred function that called recover.
func (er *ErrorRouter) Recovered(v any) *RuntimeError {
	stack := captureStack(1)
	return &RuntimeError{
		Value:    v,
		Severity: SeverityError,
		Message:  fmt.Sprint(v),
		Location: panicLocation(stack),
		stack:    stack,
	}
}

// Handle writes the response for a failed request.
// Nothing else may be written for the request afterwards.
func (er *ErrorRouter) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	status := StatusFor(err)
	var loc Location
	if l, ok := asLocated(err); ok {
		loc = l.Where()
	}
	er.logger.ErrorContext(ctx, "request failed",
		slog.Int("status", status),
		slog.String("kind", ErrorKind(err)),
		slog.String("location", loc.String()),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)

	er.mu.RLock()
	handlers := append([]ExceptionHandler(nil), er.handlers...)
	er.mu.RUnlock()
	if len(handlers) > 0 {
		for _, h := range handlers {
			h(w, r, err)
		}
		return
	}

	if !er.showErrors {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if renderErr := errorPage(newDiagnostic(err)).Render(ctx, w); renderErr != nil {
		er.logger.ErrorContext(ctx, "failed to render error page", slog.Any("error", renderErr))
	}
}

// diagnostic is the data shown on the error page.
type diagnostic struct {
	File    string
	Kind    string
	Message string
	Trace   string
	Line    int
}

func newDiagnostic(err error) diagnostic {
	d := diagnostic{
		Kind:    ErrorKind(err),
		Message: err.Error(),
	}
	if l, ok := asLocated(err); ok {
		loc := l.Where()
		d.File, d.Line = loc.File, loc.Line
		d.Trace = l.Trace()
	}
	return d
}

func errorPage(d diagnostic) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		b.WriteString(templ.EscapeString(d.Kind))
		b.WriteString(`</title></head><body><h1>`)
		b.WriteString(templ.EscapeString(d.Kind))
		b.WriteString(`</h1><p class="message">`)
		b.WriteString(templ.EscapeString(d.Message))
		b.WriteString(`</p><p class="location">`)
		b.WriteString(templ.EscapeString(fmt.Sprintf("%s:%d", d.File, d.Line)))
		b.WriteString(`</p><pre class="trace">`)
		b.WriteString(templ.EscapeString(d.Trace))
		b.WriteString(`</pre></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// panicLocation returns the frame that called panic, skipping runtime frames.
func panicLocation(s callStack) Location {
	frames := runtime.CallersFrames(s)
	afterPanic := false
	for {
		f, more := frames.Next()
		if afterPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return Location{File: f.File, Line: f.Line}
		}
		if f.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}
	return s.location()
}
