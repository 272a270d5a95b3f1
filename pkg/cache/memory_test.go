package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/cache"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[string]()
		t.Cleanup(func() { _ = m.Close() })

		require.NoError(t, m.Set(ctx, "a", "1", time.Minute))
		v, err := m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "1", v)

		require.NoError(t, m.Set(ctx, "a", "2", 0))
		v, err = m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int]()
		t.Cleanup(func() { _ = m.Close() })

		_, err := m.Get(ctx, "nope")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int](cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = m.Close() })

		require.NoError(t, m.Set(ctx, "short", 1, time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := m.Get(ctx, "short")
		assert.ErrorIs(t, err, cache.ErrNotFound)
		assert.Zero(t, m.Len())
	})

	t.Run("sweep removes expired entries", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int](cache.WithCleanupInterval(5 * time.Millisecond))
		t.Cleanup(func() { _ = m.Close() })

		require.NoError(t, m.Set(ctx, "short", 1, time.Millisecond))
		require.NoError(t, m.Set(ctx, "long", 2, time.Hour))
		assert.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int]()
		t.Cleanup(func() { _ = m.Close() })

		require.NoError(t, m.Set(ctx, "a", 1, 0))
		require.NoError(t, m.Delete(ctx, "a"))
		require.NoError(t, m.Delete(ctx, "a"))
		_, err := m.Get(ctx, "a")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int]()
		require.NoError(t, m.Close())
		require.NoError(t, m.Close())

		assert.ErrorIs(t, m.Set(ctx, "a", 1, 0), cache.ErrClosed)
		_, err := m.Get(ctx, "a")
		assert.ErrorIs(t, err, cache.ErrClosed)
		assert.ErrorIs(t, m.Delete(ctx, "a"), cache.ErrClosed)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()

		m := cache.NewMemory[int]()
		t.Cleanup(func() { _ = m.Close() })

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.Set(ctx, "k", i, time.Minute)
				_, _ = m.Get(ctx, "k")
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, m.Len())
	})
}
