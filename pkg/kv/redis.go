package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"recipe-box/backend/pkg/resilience"
)

// RedisStore implements Store on top of a Redis client. Every call is
// bounded by a short per-operation timeout and routed through a circuit
// breaker so a degraded Redis fails fast instead of stalling the request
// pipeline.
type RedisStore struct {
	client    *redis.Client
	opTimeout time.Duration
	breaker   *resilience.CircuitBreaker
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithOpTimeout overrides the default per-operation timeout.
func WithOpTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.opTimeout = d }
}

// WithBreaker routes store operations through the given circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) RedisStoreOption {
	return func(s *RedisStore) { s.breaker = cb }
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		opTimeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies connectivity to Redis. Used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) run(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var val string
	err := s.run(func() error {
		res, err := s.client.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		val = res
		return nil
	})
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	return s.run(func() error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var n int64
	err := s.run(func() error {
		res, err := s.client.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		n = res
		return nil
	})
	return n, err
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	return s.run(func() error {
		return s.client.Expire(ctx, key, ttl).Err()
	})
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	return s.run(func() error {
		return s.client.Del(ctx, keys...).Err()
	})
}

// DeleteByPattern scans for keys matching pattern and deletes them in
// batches. SCAN is used instead of KEYS so large keyspaces do not block
// the Redis event loop.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	// Pattern scans can legitimately take longer than a single op.
	ctx, cancel := context.WithTimeout(ctx, 4*s.opTimeout)
	defer cancel()

	var removed int64
	err := s.run(func() error {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		batch := make([]string, 0, 100)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 100 {
				n, err := s.client.Del(ctx, batch...).Result()
				if err != nil {
					return err
				}
				removed += n
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			n, err := s.client.Del(ctx, batch...).Result()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	return removed, err
}
