package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
)

func TestResponseContext_Buffered(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	out := internal.NewResponseContext(rec, true)

	out.SetHeader("x-first", "1")
	out.SetHeader("X-Second", "2")
	out.SetHeader("X-First", "3")
	out.SetStatus(http.StatusCreated)

	_, err := out.WriteString("action")
	require.NoError(t, err)
	out.AppendBody("chunk1 ")
	out.AppendBody("chunk2 ")

	assert.False(t, out.Committed())
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "action", out.Buffered())
	assert.Equal(t, []internal.HeaderField{{Name: "X-First", Value: "3"}, {Name: "X-Second", Value: "2"}}, out.Headers())

	require.NoError(t, out.Flush())

	assert.True(t, out.Committed())
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-First"))
	assert.Equal(t, "chunk1 chunk2 action", rec.Body.String())
	assert.EqualValues(t, len("chunk1 chunk2 action"), out.Size())
}

func TestResponseContext_Streaming(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	out := internal.NewResponseContext(rec, false)
	out.SetHeader("X-Early", "yes")
	out.SetStatus(http.StatusAccepted)

	_, err := out.WriteString("first")
	require.NoError(t, err)

	assert.True(t, out.Committed())
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "first", rec.Body.String())

	out.SetHeader("X-Late", "ignored")
	_, err = out.WriteString(" second")
	require.NoError(t, err)
	require.NoError(t, out.Flush())

	assert.Equal(t, "yes", rec.Header().Get("X-Early"))
	assert.Empty(t, rec.Header().Get("X-Late"))
	assert.Equal(t, "first second", rec.Body.String())
}

func TestResponseContext_Discard(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	out := internal.NewResponseContext(rec, true)
	_, _ = out.WriteString("partial")
	out.AppendBody("chunk")
	out.AddCookie(&http.Cookie{Name: "pref", Value: "dark"})
	require.Len(t, out.Cookies(), 1)

	out.Discard()

	assert.Empty(t, out.Buffered())
	assert.Empty(t, out.Body())
	assert.Empty(t, out.Cookies())
	assert.False(t, out.Committed())
	assert.Same(t, rec, out.Unwrap())
}

func TestResponseContext_Cookies(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	out := internal.NewResponseContext(rec, true)
	out.AddCookie(&http.Cookie{Name: "a", Value: "1"})
	out.AddCookie(&http.Cookie{Name: "b", Value: "2", HttpOnly: true})
	out.AddCookie(&http.Cookie{Name: ""})
	assert.Empty(t, rec.Header().Values("Set-Cookie"), "cookies wait for the status line")

	require.NoError(t, out.Flush())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "a", cookies[0].Name)
	assert.Equal(t, "b", cookies[1].Name)
	assert.True(t, cookies[1].HttpOnly)
}
