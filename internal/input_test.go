package internal

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/sanitizer"
)

func TestInputReader_Sources(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/user/save?id=1&q=go", strings.NewReader("name=Ann&id=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})

	rc, err := inputReader{}.read(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "q"}, rc.Source(SourceGet).Keys())
	assert.Equal(t, "Ann", rc.Source(SourcePost).String("name"))
	assert.Equal(t, "dark", rc.Source(SourceCookie).String("theme"))
	assert.Equal(t, "2", rc.Source(SourceRequest).String("id"), "POST shadows GET")
	assert.False(t, rc.Has(SourceJSON))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "name=Ann&id=2", string(body), "body is restored")
}

func TestInputReader_JSON(t *testing.T) {
	t.Parallel()

	t.Run("object", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"b":1,"a":"x\"y"}`))
		req.Header.Set("Content-Type", "application/json")

		rc, err := inputReader{}.read(req)
		require.NoError(t, err)
		js := rc.Source(SourceJSON)
		assert.Equal(t, []string{"a", "b"}, js.Keys())
		assert.Equal(t, "x'y", js.String("a"))
		assert.Zero(t, rc.Source(SourcePost).Len())
	})

	t.Run("array", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`["a","b"]`))
		rc, err := inputReader{}.read(req)
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1"}, rc.Source(SourceJSON).Keys())
	})

	t.Run("invalid is ignored", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken":`))
		rc, err := inputReader{}.read(req)
		require.NoError(t, err)
		assert.False(t, rc.Has(SourceJSON))
	})

	t.Run("scalar is ignored", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`42`))
		rc, err := inputReader{}.read(req)
		require.NoError(t, err)
		assert.False(t, rc.Has(SourceJSON))
	})
}

func TestInputReader_Multipart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "hello"))
	require.NoError(t, mw.WriteField("tag", "a"))
	require.NoError(t, mw.WriteField("tag", "b"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rc, err := inputReader{}.read(req)
	require.NoError(t, err)

	post := rc.Source(SourcePost)
	assert.Equal(t, []string{"tag", "title"}, post.Keys())
	assert.Equal(t, "hello", post.String("title"))
	tags, _ := post.Get("tag")
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestInputReader_BodyLimit(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 11)))
	_, err := inputReader{maxBody: 10}.read(req)

	re := AsResponseError(err)
	require.NotNil(t, re)
	assert.Equal(t, http.StatusRequestEntityTooLarge, re.Code)
}

func TestInputReader_Tidy(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?msg=%22hi%22%00&html=%3Cb%3Ebold%3C%2Fb%3E", nil)

	rc, err := inputReader{tidy: sanitizer.Options{StripTags: true}}.read(req)
	require.NoError(t, err)

	get := rc.Source(SourceGet)
	assert.Equal(t, "'hi'", get.String("msg"))
	assert.Equal(t, "bold", get.String("html"))
}
