package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/kv"
)

func newTestLimiter(t *testing.T, store kv.Store, now func() time.Time) *RateLimiter {
	t.Helper()
	return NewRateLimiter(store, testClasses(), 0.10, "rb:", testLogger(), WithRateLimitClock(now))
}

func TestCheckAndConsumeWithinBudget(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)

	dec := rl.CheckAndConsume(context.Background(), "1.2.3.4", config.ClassAPI)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 59, dec.Remaining)
}

func TestBurstAllowance(t *testing.T) {
	rl := newTestLimiter(t, kv.NewMemoryStore(), time.Now)

	// 10% of 60 is 6 extra tokens; 10% of 5 truncates to none.
	assert.Equal(t, 6, rl.BurstAllowance(config.ClassAPI))
	assert.Equal(t, 0, rl.BurstAllowance(config.ClassAuth))
	assert.Equal(t, 0, rl.BurstAllowance("unknown"))
}

func TestAPIClassAdmitsThroughBurstThenRejects(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	for i := 0; i < 66; i++ {
		dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAPI)
		require.True(t, dec.Allowed, "draw %d should be admitted", i+1)
	}

	dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAPI)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Greater(t, dec.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, dec.RetryAfterSeconds, 60)
}

func TestAuthClassRejectsSixthAttempt(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
		require.True(t, dec.Allowed)
	}

	dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	assert.False(t, dec.Allowed)
	assert.LessOrEqual(t, dec.RetryAfterSeconds, 900)
}

func TestRejectedCallsStillConsume(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	}

	// Rejected draws kept incrementing the counter, so the bucket is
	// deeper in debt than the bare maximum.
	n, err := store.Increment(ctx, "rb:ratelimit:auth:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	store := kv.NewMemoryStore()
	current := time.Now()
	now := func() time.Time { return current }
	store.SetClock(now)
	rl := newTestLimiter(t, store, now)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	}
	dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	require.False(t, dec.Allowed)

	current = current.Add(15*time.Minute + time.Second)

	dec = rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	assert.True(t, dec.Allowed, "fresh window should admit")
	assert.Equal(t, 4, dec.Remaining)
}

func TestSeparateBucketsPerClientAndClass(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	}
	require.False(t, rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth).Allowed)

	// A different client key and a different class stay unaffected.
	assert.True(t, rl.CheckAndConsume(ctx, "5.6.7.8", config.ClassAuth).Allowed)
	assert.True(t, rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAPI).Allowed)
}

func TestFailOpenOnStoreError(t *testing.T) {
	rl := newTestLimiter(t, failingStore{}, time.Now)

	dec := rl.CheckAndConsume(context.Background(), "1.2.3.4", config.ClassAPI)
	assert.True(t, dec.Allowed)
	assert.Equal(t, -1, dec.Remaining)
}

func TestUnknownClassAdmits(t *testing.T) {
	rl := newTestLimiter(t, kv.NewMemoryStore(), time.Now)

	dec := rl.CheckAndConsume(context.Background(), "1.2.3.4", "nonexistent")
	assert.True(t, dec.Allowed)
}

func TestReset(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	}
	require.False(t, rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth).Allowed)

	require.NoError(t, rl.Reset(ctx, "1.2.3.4", config.ClassAuth))

	dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Remaining)
}

func TestMiddlewareThrottleResponse(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)

	engine := gin.New()
	engine.GET("/login",
		NewRequestContext(config.ClassAuth, nil),
		rl.Middleware(config.ClassAuth),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	for i := 0; i < 5; i++ {
		w := doRequest(engine, http.MethodGet, "/login", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, fmt.Sprintf("%d", 4-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := doRequest(engine, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Too many authentication attempts. Please try again later.", body.Message)
	assert.Greater(t, body.RetryAfter, 0)
}

func TestMiddlewareKeysOnUserWhenAuthenticated(t *testing.T) {
	store := kv.NewMemoryStore()
	rl := newTestLimiter(t, store, time.Now)
	ctx := context.Background()

	engine := gin.New()
	engine.GET("/r",
		func(c *gin.Context) {
			setRequestContext(c, RequestContext{ClientIP: "1.2.3.4", UserID: "42"})
			c.Next()
		},
		rl.Middleware(config.ClassAuth),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	for i := 0; i < 6; i++ {
		doRequest(engine, http.MethodGet, "/r", nil)
	}

	// The ip-only bucket is untouched by the authenticated caller.
	dec := rl.CheckAndConsume(ctx, "1.2.3.4", config.ClassAuth)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Remaining)

	dec = rl.CheckAndConsume(ctx, "1.2.3.4-42", config.ClassAuth)
	assert.False(t, dec.Allowed)
}
