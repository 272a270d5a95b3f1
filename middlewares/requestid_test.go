package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/middlewares"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates new request ID when not present", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		rec := serve(t, req, nil, named{"request_id", middlewares.RequestID()})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, rec.Header().Get("X-Request-ID"), 26)
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		req.Header.Set("X-Correlation-ID", "upstream-123")
		rec := serve(t, req, nil, named{"request_id", middlewares.RequestID()})

		assert.Equal(t, "upstream-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("custom generator and response header", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RequestID(
			middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
			middlewares.WithRequestIDResponseHeader("X-Trace"),
		)
		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		rec := serve(t, req, nil, named{"request_id", mw})

		assert.Equal(t, "fixed", rec.Header().Get("X-Trace"))
		assert.Empty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("GetRequestID returns stored ID inside the action", func(t *testing.T) {
		t.Parallel()

		var captured string
		index := func(c internal.Context) error {
			captured = middlewares.GetRequestID(c)
			return c.String(captured)
		}
		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		rec := serve(t, req, index, named{"request_id", middlewares.RequestID()})

		require.NotEmpty(t, captured)
		assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, captured, rec.Body.String())
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	t.Run("returns attribute when request ID present", func(t *testing.T) {
		t.Parallel()

		var attrValue string
		index := func(c internal.Context) error {
			attr, ok := middlewares.RequestIDExtractor()(c)
			require.True(t, ok)
			require.Equal(t, "request_id", attr.Key)
			attrValue = attr.Value.String()
			return nil
		}
		req := httptest.NewRequest(http.MethodGet, "/page", nil)
		req.Header.Set("X-Request-ID", "abc")
		serve(t, req, index, named{"request_id", middlewares.RequestID()})

		assert.Equal(t, "abc", attrValue)
	})

	t.Run("returns false without request ID", func(t *testing.T) {
		t.Parallel()

		_, ok := middlewares.RequestIDExtractor()(context.Background())
		assert.False(t, ok)
	})
}
