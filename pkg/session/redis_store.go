package session

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/relay/pkg/redis"
)

func init() {
	RegisterStore("redis", openRedisStore)
}

// redisStore owns the client it was opened with.
type redisStore struct {
	*CacheStore
	client goredis.UniversalClient
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// Healthcheck pings the redis server backing the store.
func (s *redisStore) Healthcheck(ctx context.Context) error {
	return redis.Healthcheck(s.client)(ctx)
}

func openRedisStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("session: redis store needs a redis url")
	}
	client, err := redis.Open(ctx, redis.Config{URL: cfg.RedisURL})
	if err != nil {
		return nil, err
	}
	return &redisStore{CacheStore: NewRedisStore(client), client: client}, nil
}
