package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestManager_Start(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates a session and sets the cookie", func(t *testing.T) {
		t.Parallel()

		m := session.NewManager(session.NewMemoryStore())
		m.SetCookieParams(session.CookieParams{Name: "sid", Lifetime: time.Hour, HTTPOnly: true, Secure: true})

		rec := httptest.NewRecorder()
		sess, err := m.Start(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		require.NotEmpty(t, sess.ID)

		c := sessionCookie(t, rec, "sid")
		assert.Equal(t, sess.Token, c.Value)
		assert.Equal(t, 3600, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, "/", c.Path)
	})

	t.Run("resumes an existing session", func(t *testing.T) {
		t.Parallel()

		m := session.NewManager(session.NewMemoryStore())

		rec := httptest.NewRecorder()
		first, err := m.Start(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		first.SetValue("user", "ann")
		require.NoError(t, m.Save(ctx, first))
		assert.False(t, first.IsDirty())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(sessionCookie(t, rec, session.DefaultCookieName))
		second, err := m.Start(ctx, httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "ann", second.Values["user"])
	})

	t.Run("unknown token starts a fresh session", func(t *testing.T) {
		t.Parallel()

		m := session.NewManager(session.NewMemoryStore())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "stale"})

		rec := httptest.NewRecorder()
		sess, err := m.Start(ctx, rec, req)
		require.NoError(t, err)
		assert.NotEqual(t, "stale", sess.Token)
		assert.Equal(t, sess.Token, sessionCookie(t, rec, session.DefaultCookieName).Value)
	})

	t.Run("signed cookie", func(t *testing.T) {
		t.Parallel()

		m := session.NewManager(session.NewMemoryStore(), session.WithSecret(testSecret))

		rec := httptest.NewRecorder()
		sess, err := m.Start(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)

		c := sessionCookie(t, rec, session.DefaultCookieName)
		assert.NotEqual(t, sess.Token, c.Value)
		assert.True(t, strings.Contains(c.Value, "."))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		again, err := m.Start(ctx, httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, again.ID)

		tampered := httptest.NewRequest(http.MethodGet, "/", nil)
		tampered.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value + "x"})
		fresh, err := m.Start(ctx, httptest.NewRecorder(), tampered)
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, fresh.ID)
	})
}

func TestManager_RegenerateAndDestroy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewMemoryStore()
	m := session.NewManager(store)

	sess, err := m.Start(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	oldToken := sess.Token

	rec := httptest.NewRecorder()
	require.NoError(t, m.Regenerate(ctx, rec, sess))
	assert.NotEqual(t, oldToken, sess.Token)
	assert.Equal(t, sess.Token, sessionCookie(t, rec, session.DefaultCookieName).Value)

	_, err = store.Get(ctx, oldToken)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(ctx, sess.Token)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, rec, sess))
	assert.Equal(t, -1, sessionCookie(t, rec, session.DefaultCookieName).MaxAge)
	_, err = store.Get(ctx, sess.Token)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestManager_CookieParamsDefaults(t *testing.T) {
	t.Parallel()

	m := session.NewManager(session.NewMemoryStore())
	m.SetCookieParams(session.CookieParams{})

	p := m.CookieParams()
	assert.Equal(t, session.DefaultCookieName, p.Name)
	assert.Equal(t, "/", p.Path)
	assert.Equal(t, session.DefaultLifetime, p.Lifetime)
	assert.Equal(t, http.SameSiteLaxMode, p.SameSite)
}
