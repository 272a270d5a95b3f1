package middlewares

import "github.com/dmitrymomot/relay/internal"

// SecureHeadersConfig lists the headers SecureHeaders sets.
// Empty values are not sent.
type SecureHeadersConfig struct {
	ContentTypeOptions    string
	FrameOptions          string
	ReferrerPolicy        string
	ContentSecurityPolicy string
	StrictTransport       string
}

// SecureHeadersOption configures SecureHeadersConfig.
type SecureHeadersOption func(*SecureHeadersConfig)

// WithFrameOptions sets X-Frame-Options.
func WithFrameOptions(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.FrameOptions = v
	}
}

// WithReferrerPolicy sets Referrer-Policy.
func WithReferrerPolicy(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.ReferrerPolicy = v
	}
}

// WithContentSecurityPolicy sets Content-Security-Policy.
func WithContentSecurityPolicy(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.ContentSecurityPolicy = v
	}
}

// WithHSTS sets Strict-Transport-Security. Only use it behind HTTPS.
func WithHSTS(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.StrictTransport = v
	}
}

// SecureHeaders sets hardening headers in its after hook, so they are
// only added to successful responses and never overwrite what the
// action set.
func SecureHeaders(opts ...SecureHeadersOption) internal.MiddlewareFactory {
	cfg := &SecureHeadersConfig{
		ContentTypeOptions: "nosniff",
		FrameOptions:       "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	headers := [][2]string{
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"X-Frame-Options", cfg.FrameOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"Strict-Transport-Security", cfg.StrictTransport},
	}

	return func(internal.Resolver) (internal.Middleware, error) {
		return internal.Hooks{
			AfterFunc: func(c internal.Context) error {
				out := c.Output()
				for _, h := range headers {
					if h[1] == "" {
						continue
					}
					if _, set := out.Header(h[0]); !set {
						out.SetHeader(h[0], h[1])
					}
				}
				return nil
			},
		}, nil
	}
}
