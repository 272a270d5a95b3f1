package internal_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
)

type counter struct{ n int }

func TestContainer_Lifetimes(t *testing.T) {
	t.Parallel()

	t.Run("shared returns the same instance", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		var built atomic.Int32
		c.Bind("svc", func(internal.Resolver) (any, error) {
			built.Add(1)
			return &counter{}, nil
		}, internal.Shared)

		a, err := c.Resolve("svc")
		require.NoError(t, err)
		b, err := c.Resolve("svc")
		require.NoError(t, err)

		assert.Same(t, a, b)
		assert.Equal(t, int32(1), built.Load())
	})

	t.Run("factory returns a fresh instance", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		c.Bind("svc", func(internal.Resolver) (any, error) {
			return &counter{}, nil
		}, internal.Factory)

		a, err := c.Resolve("svc")
		require.NoError(t, err)
		b, err := c.Resolve("svc")
		require.NoError(t, err)

		assert.NotSame(t, a, b)
	})

	t.Run("concurrent first resolution builds once", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		var built atomic.Int32
		c.Bind("svc", func(internal.Resolver) (any, error) {
			built.Add(1)
			return &counter{}, nil
		}, internal.Shared)

		var wg sync.WaitGroup
		results := make([]any, 16)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _ = c.Resolve("svc")
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), built.Load())
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})
}

func TestContainer_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unbound identifier", func(t *testing.T) {
		t.Parallel()

		_, err := internal.NewContainer().Resolve("missing")
		require.ErrorIs(t, err, internal.ErrUnboundService)
		assert.Contains(t, err.Error(), `"missing"`)
	})

	t.Run("factory error is returned and not cached", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		fail := true
		c.Bind("svc", func(internal.Resolver) (any, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return &counter{}, nil
		}, internal.Shared)

		_, err := c.Resolve("svc")
		require.EqualError(t, err, "boom")

		fail = false
		v, err := c.Resolve("svc")
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("circular dependency", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		c.Bind("a", func(r internal.Resolver) (any, error) { return r.Resolve("b") }, internal.Shared)
		c.Bind("b", func(r internal.Resolver) (any, error) { return r.Resolve("a") }, internal.Factory)

		_, err := c.Resolve("a")
		var cycle *internal.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Chain)
	})

	t.Run("typed resolve mismatch", func(t *testing.T) {
		t.Parallel()

		c := internal.NewContainer()
		c.BindInstance("name", "relay")

		_, err := internal.Resolve[int](c, "name")
		require.ErrorIs(t, err, internal.ErrServiceType)

		s, err := internal.Resolve[string](c, "name")
		require.NoError(t, err)
		assert.Equal(t, "relay", s)

		assert.Panics(t, func() { internal.MustResolve[int](c, "name") })
	})
}

func TestContainer_ConcurrentCycle(t *testing.T) {
	t.Parallel()

	c := internal.NewContainer()
	var started sync.WaitGroup
	started.Add(2)
	bind := func(id, dep string) {
		c.Bind(id, func(r internal.Resolver) (any, error) {
			started.Done()
			started.Wait()
			return r.Resolve(dep)
		}, internal.Shared)
	}
	bind("a", "b")
	bind("b", "a")

	errs := make(chan error, 2)
	for _, id := range []string{"a", "b"} {
		go func() {
			_, err := c.Resolve(id)
			errs <- err
		}()
	}

	for range 2 {
		select {
		case err := <-errs:
			var cycle *internal.CircularDependencyError
			assert.ErrorAs(t, err, &cycle)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "concurrent resolution of a cycle did not return")
		}
	}
}

func TestContainer_PanicReleasesWaiters(t *testing.T) {
	t.Parallel()

	c := internal.NewContainer()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	c.Bind("svc", func(internal.Resolver) (any, error) {
		if calls.Add(1) > 1 {
			return nil, errors.New("retry failed")
		}
		close(entered)
		<-release
		panic("boom")
	}, internal.Shared)

	go func() {
		defer func() { _ = recover() }()
		_, _ = c.Resolve("svc")
	}()
	<-entered

	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve("svc")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "waiter was not released after a panicking construction")
	}
}

func TestContainer_Rebind(t *testing.T) {
	t.Parallel()

	c := internal.NewContainer()
	c.BindInstance("svc", 1)
	v, err := c.Resolve("svc")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	c.Bind("svc", func(internal.Resolver) (any, error) { return 2, nil }, internal.Shared)
	v, err = c.Resolve("svc")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestContainer_Scope(t *testing.T) {
	t.Parallel()

	t.Run("lookups fall through to the parent", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		root.BindInstance("config", "cfg")
		scope := root.Scope()

		assert.True(t, scope.Has("config"))
		v, err := scope.Resolve("config")
		require.NoError(t, err)
		assert.Equal(t, "cfg", v)
	})

	t.Run("scope bindings do not leak to the parent or siblings", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		a, b := root.Scope(), root.Scope()
		a.BindInstance("request", "a")

		assert.False(t, root.Has("request"))
		assert.False(t, b.Has("request"))
	})

	t.Run("shared parent instances are shared across scopes", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		root.Bind("svc", func(internal.Resolver) (any, error) { return &counter{}, nil }, internal.Shared)

		x, err := root.Scope().Resolve("svc")
		require.NoError(t, err)
		y, err := root.Scope().Resolve("svc")
		require.NoError(t, err)
		assert.Same(t, x, y)
	})

	t.Run("factory bindings resolve against the requesting scope", func(t *testing.T) {
		t.Parallel()

		root := internal.NewContainer()
		root.Bind("greeting", func(r internal.Resolver) (any, error) {
			name, err := internal.Resolve[string](r, "name")
			if err != nil {
				return nil, err
			}
			return "hello " + name, nil
		}, internal.Factory)

		s1, s2 := root.Scope(), root.Scope()
		s1.BindInstance("name", "ann")
		s2.BindInstance("name", "bob")

		g1, err := internal.Resolve[string](s1, "greeting")
		require.NoError(t, err)
		g2, err := internal.Resolve[string](s2, "greeting")
		require.NoError(t, err)

		assert.Equal(t, "hello ann", g1)
		assert.Equal(t, "hello bob", g2)

		_, err = root.Resolve("greeting")
		assert.ErrorIs(t, err, internal.ErrUnboundService)
	})
}
