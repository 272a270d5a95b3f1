// Package middlewares provides middleware for relay kernels.
//
// Every constructor returns a MiddlewareFactory. Register it under a name
// and enable the name in the middleware setting; hooks run in the order
// the setting lists them.
//
//	k := relay.New(
//	    relay.WithLogExtractors(middlewares.RequestIDExtractor()),
//	    relay.WithMiddleware("request_id", middlewares.RequestID()),
//	    relay.WithMiddleware("secure_headers", middlewares.SecureHeaders()),
//	    relay.WithMiddleware("timing", middlewares.Timing()),
//	)
//
//	# config.yaml
//	middleware: [request_id, timing, secure_headers]
//
// # Request ID
//
// RequestID keeps an upstream X-Request-ID (or X-Correlation-ID) or
// generates a ULID, stores it on the context and echoes it in the
// response. RequestIDExtractor adds it to every log record.
//
// # Secure Headers
//
// SecureHeaders adds nosniff, frame and referrer headers to successful
// responses without overriding headers the action set.
//
// # Timing
//
// Timing sets Server-Timing and logs the dispatch duration.
package middlewares
