package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		client, err := Open(ctx, Config{})
		require.ErrorIs(t, err, ErrMissingURL)
		require.Nil(t, client)
	})

	for _, url := range []string{"http://localhost:6379", "localhost:6379", "postgresql://localhost:6379"} {
		t.Run("scheme "+url, func(t *testing.T) {
			t.Parallel()

			client, err := Open(ctx, Config{URL: url})
			require.ErrorIs(t, err, ErrInvalidURL)
			require.Nil(t, client)
		})
	}

	t.Run("malformed URL", func(t *testing.T) {
		t.Parallel()

		_, err := Open(ctx, Config{URL: "redis://localhost:6379/notadb"})
		require.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestOpen_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Open(ctx, Config{
		URL:           "redis://127.0.0.1:1/0",
		RetryAttempts: 2,
		RetryInterval: 10 * time.Millisecond,
		DialTimeout:   100 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.Nil(t, client)
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	c := Config{PoolSize: 50}.WithDefaults()
	require.Equal(t, 50, c.PoolSize)
	require.Equal(t, 3, c.RetryAttempts)
	require.Equal(t, 3*time.Second, c.IOTimeout)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := Healthcheck(nil)(context.Background())
	require.True(t, errors.Is(err, ErrHealthcheckFailed))
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	c := &closer{}
	require.NoError(t, Shutdown(c)(context.Background()))
	require.True(t, c.closed)
}
