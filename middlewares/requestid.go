package middlewares

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/pkg/id"
	"github.com/dmitrymomot/relay/pkg/logger"
)

// requestIDKey is the context key for storing the request ID.
type requestIDKey struct{}

// DefaultRequestIDHeaders are the headers checked (in order) for an existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string // ID generator function
	ResponseHeader string        // Response header name
	Headers        []string      // Headers to check for existing ID (in order)
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if header != "" {
			cfg.ResponseHeader = header
		}
	}
}

// RequestID assigns an ID to every dispatched request in its before hook.
// An ID sent by an upstream proxy is kept, otherwise a ULID is generated.
// The ID is stored on the context and echoed in the response header.
func RequestID(opts ...RequestIDOption) internal.MiddlewareFactory {
	cfg := &RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      id.NewULID,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sources := make([]internal.ExtractorSource, len(cfg.Headers))
	for i, h := range cfg.Headers {
		sources[i] = internal.FromHeader(h)
	}
	upstream := internal.NewExtractor(sources...)

	return func(internal.Resolver) (internal.Middleware, error) {
		return internal.Hooks{
			BeforeFunc: func(c internal.Context) error {
				reqID, ok := upstream.Extract(c)
				if !ok {
					reqID = cfg.Generator()
				}
				c.Set(requestIDKey{}, reqID)
				c.SetHeader(cfg.ResponseHeader, reqID)
				return nil
			},
		}, nil
	}
}

// GetRequestID returns the request ID, or an empty string when the
// middleware did not run.
func GetRequestID(c internal.Context) string {
	if v, ok := c.Get(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestIDExtractor adds "request_id" to log records written with the
// request context.
//
//	relay.New(relay.WithLogExtractors(middlewares.RequestIDExtractor()))
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
