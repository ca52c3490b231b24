package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "auth:".
func NewRedisStore(ctx context.Context, redisURL, prefix string) (Store, error) {
	const op = "cache.NewRedisStore"

	if prefix == "" {
		prefix = "auth:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *redisStore) key(k string) string { return s.prefix + k }

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.redis.Set"

	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "cache.redis.Get"

	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return b, true, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	const op = "cache.redis.Delete"

	n, err := s.rdb.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }
