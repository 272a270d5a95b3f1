package id

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	t.Run("format", func(t *testing.T) {
		t.Parallel()

		v := NewULID()
		assert.Len(t, v, ULIDLength)
		assert.True(t, IsULID(v), v)
	})

	t.Run("sorted by time", func(t *testing.T) {
		t.Parallel()

		base := time.UnixMilli(1_700_000_000_000)
		earlier := ulidAt(base)
		later := ulidAt(base.Add(time.Millisecond))
		assert.Less(t, earlier, later)
		assert.Equal(t, earlier[:10], ulidAt(base)[:10], "same millisecond, same prefix")
	})

	t.Run("timestamp encoding", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "0000000000", ulidAt(time.UnixMilli(0))[:10])
		assert.Equal(t, "0000000001", ulidAt(time.UnixMilli(1))[:10])
		assert.Equal(t, "000000000Z", ulidAt(time.UnixMilli(31))[:10])
		assert.Equal(t, "0000000010", ulidAt(time.UnixMilli(32))[:10])
	})

	t.Run("unique under concurrency", func(t *testing.T) {
		t.Parallel()

		const n = 1000
		var (
			mu   sync.Mutex
			wg   sync.WaitGroup
			seen = make(map[string]struct{}, n)
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v := NewULID()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		require.Len(t, seen, n)
	})
}

func TestIsULID(t *testing.T) {
	t.Parallel()

	assert.True(t, IsULID("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
	assert.False(t, IsULID(""))
	assert.False(t, IsULID("01ARZ3NDEKTSV4RRFFQ69G5FA"))
	assert.False(t, IsULID("01ARZ3NDEKTSV4RRFFQ69G5FAU"), "U is not in the alphabet")
	assert.False(t, IsULID("81ARZ3NDEKTSV4RRFFQ69G5FAV"), "overflows 128 bits")
	assert.False(t, IsULID("01arz3ndektsv4rrffq69g5fav"))
}
