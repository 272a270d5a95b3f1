package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/session"
)

func TestCacheStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id-1", "tok-1", time.Now().Add(time.Hour))
		sess.SetValue("k", "v")
		require.NoError(t, store.Create(ctx, sess))

		got, err := store.Get(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "v", got.Values["k"])
	})

	t.Run("returned sessions do not share values", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id", "tok", time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, sess))

		a, err := store.Get(ctx, "tok")
		require.NoError(t, err)
		a.SetValue("k", "changed")

		b, err := store.Get(ctx, "tok")
		require.NoError(t, err)
		_, ok := b.GetValue("k")
		assert.False(t, ok)
	})

	t.Run("concurrent loads get independent copies", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id-c", "tok-c", time.Now().Add(time.Hour))
		sess.SetValue("n", 0)
		require.NoError(t, store.Create(ctx, sess))

		var wg sync.WaitGroup
		got := make([]*session.Session, 8)
		errs := make([]error, len(got))
		for i := range got {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got[i], errs[i] = store.Get(ctx, "tok-c")
			}()
		}
		wg.Wait()

		for i := range got {
			require.NoError(t, errs[i])
			got[i].SetValue("n", i+1)
		}
		for i := range got {
			v, _ := got[i].GetValue("n")
			assert.Equal(t, i+1, v)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id", "tok", time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, sess))
		sess.SetValue("k", 1)
		require.NoError(t, store.Update(ctx, sess))

		got, err := store.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Values["k"])

		require.NoError(t, store.Delete(ctx, "tok"))
		_, err = store.Get(ctx, "tok")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id", "tok", time.Now().Add(time.Hour))
		sess.SetValue("k", "before")
		require.NoError(t, store.Create(ctx, sess))
		sess.SetValue("k", "after")

		got, err := store.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "before", got.Values["k"])
		assert.False(t, got.IsDirty())
	})

	t.Run("expired session cannot be saved", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		sess := session.New("id", "tok", time.Now().Add(-time.Second))
		require.ErrorIs(t, store.Create(ctx, sess), session.ErrExpired)
	})
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, err := session.NewStore(ctx, "", session.StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &session.CacheStore{}, store)

	_, err = session.NewStore(ctx, "nope", session.StoreConfig{})
	require.ErrorIs(t, err, session.ErrUnknownStore)

	_, err = session.NewStore(ctx, "redis", session.StoreConfig{})
	require.Error(t, err)

	assert.Contains(t, session.Kinds(), "memory")
	assert.Contains(t, session.Kinds(), "redis")
}
