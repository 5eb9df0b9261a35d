package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.SetClock(func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, store.SetWithExpiry(ctx, "k", "v", 10*time.Second))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	current = current.Add(11 * time.Second)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreIncrement(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.SetClock(func() time.Time { return current })
	ctx := context.Background()

	n, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryStoreIncrementPreservesTTL(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.SetClock(func() time.Time { return current })
	ctx := context.Background()

	_, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "counter", 30*time.Second))

	n, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// TTL from Expire must survive the second increment.
	current = current.Add(31 * time.Second)
	n, err = store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter should restart after expiry")
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SetWithExpiry(ctx, "a", "1", 0))
	require.NoError(t, store.SetWithExpiry(ctx, "b", "2", 0))

	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreDeleteByPattern(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SetWithExpiry(ctx, "rb:recipe:aaa", "1", 0))
	require.NoError(t, store.SetWithExpiry(ctx, "rb:recipe:bbb", "2", 0))
	require.NoError(t, store.SetWithExpiry(ctx, "rb:shoppinglist:ccc", "3", 0))

	removed, err := store.DeleteByPattern(ctx, "rb:recipe:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, "rb:shoppinglist:ccc")
	assert.NoError(t, err)
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"rb:recipe:*", "rb:recipe:abc", true},
		{"rb:recipe:*", "rb:shoppinglist:abc", false},
		{"*", "anything", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXcYb", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, globMatch(tt.pattern, tt.s), "pattern %q against %q", tt.pattern, tt.s)
	}
}
