package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value backend shared by the rate limiter and the
// response cache. Implementations must provide atomic Increment so that
// counters stay correct across multiple server instances; everything else
// may be last-write-wins.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetWithExpiry stores value under key with the given TTL. A zero TTL
	// stores the value without expiry.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error

	// Increment atomically increments the integer counter at key and
	// returns the new value. A missing key counts from zero.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets or refreshes the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPattern removes every key matching a glob-style pattern
	// (e.g. "recipe:*") and returns the number of keys removed.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}
