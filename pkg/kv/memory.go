package kv

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value      string
	expiration int64 // unix nanos, 0 means no expiry
}

func (it memoryItem) expired(now time.Time) bool {
	return it.expiration > 0 && now.UnixNano() > it.expiration
}

// MemoryStore is an in-process Store used in tests and single-instance
// development setups. It honors the same TTL and pattern semantics as the
// Redis implementation and takes an injectable clock so expiry behavior
// can be tested without sleeping.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// SetClock replaces the store's time source. Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return "", ErrNotFound
	}
	return it.value, nil
}

func (s *MemoryStore) SetWithExpiry(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exp int64
	if ttl > 0 {
		exp = s.now().Add(ttl).UnixNano()
	}
	s.items[key] = memoryItem{value: value, expiration: exp}
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if ok && it.expired(s.now()) {
		delete(s.items, key)
		ok = false
	}

	var n int64
	if ok {
		parsed, err := strconv.ParseInt(it.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	// Increment preserves any TTL already on the key, like Redis INCR.
	s.items[key] = memoryItem{value: strconv.FormatInt(n, 10), expiration: it.expiration}
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok || it.expired(s.now()) {
		return nil
	}
	it.expiration = s.now().Add(ttl).UnixNano()
	s.items[key] = it
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

func (s *MemoryStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for k, it := range s.items {
		if it.expired(now) {
			delete(s.items, k)
			continue
		}
		if globMatch(pattern, k) {
			delete(s.items, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, it := range s.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// globMatch implements the subset of Redis glob syntax the pipeline uses:
// literal characters and "*" wildcards.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
