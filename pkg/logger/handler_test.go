package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenantKey struct{}

func tenantExtractor(ctx context.Context) (slog.Attr, bool) {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return slog.String("tenant", v), true
	}
	return slog.Attr{}, false
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestWithExtractors(t *testing.T) {
	t.Parallel()

	t.Run("adds attributes per call", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(WithExtractors(slog.NewJSONHandler(&buf, nil), nil, tenantExtractor))

		log.InfoContext(context.WithValue(context.Background(), tenantKey{}, "acme"), "first")
		log.InfoContext(context.Background(), "second")

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		assert.Contains(t, string(lines[0]), `"tenant":"acme"`)
		assert.NotContains(t, string(lines[1]), "tenant")
	})

	t.Run("survives With and WithGroup", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(WithExtractors(slog.NewJSONHandler(&buf, nil), tenantExtractor)).
			With(slog.String("svc", "api"))

		log.InfoContext(context.WithValue(context.Background(), tenantKey{}, "acme"), "hello")
		assert.Contains(t, buf.String(), `"svc":"api"`)
		assert.Contains(t, buf.String(), `"tenant":"acme"`)
	})

	t.Run("no extractors returns handler unchanged", func(t *testing.T) {
		t.Parallel()

		h := slog.NewJSONHandler(&bytes.Buffer{}, nil)
		assert.Same(t, h, WithExtractors(h, nil))
	})
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var info, errs bytes.Buffer
	h := newFanout(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).WithGroup("req")

	log.Debug("dropped")
	log.Info("info only", slog.Int("n", 1))
	log.Error("both")

	assert.NotContains(t, info.String(), "dropped")
	assert.Contains(t, info.String(), `"req":{"n":1}`)
	assert.Contains(t, info.String(), "both")
	assert.NotContains(t, errs.String(), "info only")
	assert.Contains(t, errs.String(), "both")

	t.Run("keeps delivering after a failure", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		h := newFanout(failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)}, slog.NewJSONHandler(&out, nil))
		err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "msg", 0))
		require.EqualError(t, err, "disk full")
		assert.Contains(t, out.String(), `"msg":"msg"`)
	})
}
