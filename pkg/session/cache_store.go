package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/relay/pkg/cache"
)

// CacheStore keeps sessions in a cache.Cache. Entries expire together
// with the session. Concurrent loads of one token share a single cache read.
type CacheStore struct {
	cache cache.Cache[Session]
	loads singleflight.Group
}

// NewCacheStore creates a Store on top of c.
func NewCacheStore(c cache.Cache[Session]) *CacheStore {
	return &CacheStore{cache: c}
}

// NewMemoryStore creates an in-process session store.
func NewMemoryStore() *CacheStore {
	return NewCacheStore(cache.NewMemory[Session](
		cache.WithCleanupInterval(time.Minute),
	))
}

// NewRedisStore creates a session store sharing client.
// Keys are prefixed with "session".
func NewRedisStore(client redis.UniversalClient) *CacheStore {
	return NewCacheStore(cache.NewRedis[Session](client, "session"))
}

func (s *CacheStore) Create(ctx context.Context, sess *Session) error {
	return s.put(ctx, sess)
}

func (s *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	shared, err, _ := s.loads.Do(token, func() (any, error) {
		return s.cache.Get(ctx, token)
	})
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	v := shared.(Session)
	if v.IsExpired() {
		_ = s.cache.Delete(ctx, token)
		return nil, ErrExpired
	}
	v.Values = maps.Clone(v.Values)
	if v.Values == nil {
		v.Values = make(map[string]any)
	}
	return &v, nil
}

func (s *CacheStore) Update(ctx context.Context, sess *Session) error {
	return s.put(ctx, sess)
}

func (s *CacheStore) Delete(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, token); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Close releases the underlying cache.
func (s *CacheStore) Close() error {
	return s.cache.Close()
}

func (s *CacheStore) put(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	v := *sess
	v.Values = maps.Clone(sess.Values)
	if err := s.cache.Set(ctx, sess.Token, v, ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

var _ Store = (*CacheStore)(nil)
