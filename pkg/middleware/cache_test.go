package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/kv"
)

func newTestCache(store kv.Store, ttl time.Duration, now func() time.Time) *ResponseCache {
	return NewResponseCache(store, ttl, "rb:", testLogger(), WithCacheClock(now))
}

func cachedEngine(rc *ResponseCache, hits *int) *gin.Engine {
	engine := gin.New()
	handler := func(c *gin.Context) {
		*hits++
		c.JSON(http.StatusOK, gin.H{"hits": *hits})
	}
	engine.GET("/recipes",
		NewRequestContext(config.ClassAPI, nil),
		rc.Middleware("recipe"),
		handler,
	)
	return engine
}

func TestKeyIsDeterministic(t *testing.T) {
	rc := newTestCache(kv.NewMemoryStore(), time.Minute, time.Now)

	q1 := url.Values{"cuisine": {"thai"}, "limit": {"10"}}
	q2 := url.Values{"limit": {"10"}, "cuisine": {"thai"}}

	k1 := rc.Key("recipe", "/api/v1/recipes", q1, nil, "")
	k2 := rc.Key("recipe", "/api/v1/recipes", q2, nil, "")
	assert.Equal(t, k1, k2, "query order must not change the key")

	b1 := map[string]interface{}{"a": 1.0, "b": "x"}
	b2 := map[string]interface{}{"b": "x", "a": 1.0}
	k1 = rc.Key("recipe", "/api/v1/recipes", nil, b1, "")
	k2 = rc.Key("recipe", "/api/v1/recipes", nil, b2, "")
	assert.Equal(t, k1, k2, "body field order must not change the key")
}

func TestKeyDiscriminates(t *testing.T) {
	rc := newTestCache(kv.NewMemoryStore(), time.Minute, time.Now)

	base := rc.Key("recipe", "/api/v1/recipes", nil, nil, "")

	assert.NotEqual(t, base, rc.Key("recipe", "/api/v1/recipes/1", nil, nil, ""))
	assert.NotEqual(t, base, rc.Key("recipe", "/api/v1/recipes", url.Values{"q": {"x"}}, nil, ""))
	assert.NotEqual(t, base, rc.Key("recipe", "/api/v1/recipes", nil, nil, "42"))
	assert.NotEqual(t, base, rc.Key("shoppinglist", "/api/v1/recipes", nil, nil, ""))
}

func TestKeyEscapesQueryDelimiters(t *testing.T) {
	rc := newTestCache(kv.NewMemoryStore(), time.Minute, time.Now)

	// A value containing "&" or "=" must not collide with a query that
	// carries those as structural delimiters.
	twoParams := rc.Key("recipe", "/x", url.Values{"a": {"1"}, "b": {"2"}}, nil, "")
	oneParam := rc.Key("recipe", "/x", url.Values{"a": {"1&b=2"}}, nil, "")
	assert.NotEqual(t, twoParams, oneParam)

	splitKey := rc.Key("recipe", "/x", url.Values{"a=1": {"2"}}, nil, "")
	assert.NotEqual(t, twoParams, splitKey)
}

func TestKeyCarriesNamespacePrefix(t *testing.T) {
	rc := newTestCache(kv.NewMemoryStore(), time.Minute, time.Now)

	key := rc.Key("recipe", "/api/v1/recipes", nil, nil, "")
	assert.Contains(t, key, "rb:recipe:")
}

func TestMissThenHit(t *testing.T) {
	store := kv.NewMemoryStore()
	current := time.Now()
	now := func() time.Time { return current }
	store.SetClock(now)
	rc := newTestCache(store, time.Minute, now)

	hits := 0
	engine := cachedEngine(rc, &hits)

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)
	first := w.Body.String()

	current = current.Add(10 * time.Second)

	w = doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits, "handler must not run on a hit")
	assert.Equal(t, first, w.Body.String())

	age, err := strconv.Atoi(w.Header().Get("X-Cache-Age"))
	require.NoError(t, err)
	assert.Equal(t, 10, age)
}

func TestStaleEntryEvictedEagerly(t *testing.T) {
	store := kv.NewMemoryStore()
	current := time.Now()
	now := func() time.Time { return current }
	store.SetClock(now)
	rc := newTestCache(store, time.Minute, now)

	hits := 0
	engine := cachedEngine(rc, &hits)

	doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, 1, hits)

	current = current.Add(2 * time.Minute)

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, hits, "stale entry must fall through to the handler")
}

func TestOnlySuccessfulResponsesArePersisted(t *testing.T) {
	store := kv.NewMemoryStore()
	rc := newTestCache(store, time.Minute, time.Now)

	hits := 0
	engine := gin.New()
	engine.GET("/missing",
		NewRequestContext(config.ClassAPI, nil),
		rc.Middleware("recipe"),
		func(c *gin.Context) {
			hits++
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		},
	)

	doRequest(engine, http.MethodGet, "/missing", nil)
	w := doRequest(engine, http.MethodGet, "/missing", nil)

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, hits)
	assert.Equal(t, 0, store.Len())
}

func TestHitReplaysMultiValuedHeaders(t *testing.T) {
	rc := newTestCache(kv.NewMemoryStore(), time.Minute, time.Now)

	engine := gin.New()
	engine.GET("/recipes",
		NewRequestContext(config.ClassAPI, nil),
		rc.Middleware("recipe"),
		func(c *gin.Context) {
			c.Writer.Header().Add("Link", "</page/2>; rel=\"next\"")
			c.Writer.Header().Add("Link", "</page/9>; rel=\"last\"")
			c.JSON(http.StatusOK, gin.H{"ok": true})
		},
	)

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t,
		[]string{"</page/2>; rel=\"next\"", "</page/9>; rel=\"last\""},
		w.Header().Values("Link"),
	)
}

func TestNonGetRequestsBypassCache(t *testing.T) {
	store := kv.NewMemoryStore()
	rc := newTestCache(store, time.Minute, time.Now)

	engine := gin.New()
	engine.POST("/recipes",
		NewRequestContext(config.ClassAPI, nil),
		rc.Middleware("recipe"),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	w := doRequest(engine, http.MethodPost, "/recipes", nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, 0, store.Len())
}

func TestInvalidatePattern(t *testing.T) {
	store := kv.NewMemoryStore()
	rc := newTestCache(store, time.Minute, time.Now)

	hits := 0
	engine := cachedEngine(rc, &hits)

	doRequest(engine, http.MethodGet, "/recipes", nil)
	doRequest(engine, http.MethodGet, "/recipes?cuisine=thai", nil)
	require.Equal(t, 2, hits)
	require.Equal(t, 2, store.Len())

	removed, err := rc.Invalidate(context.Background(), "recipe:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 3, hits)
}

func TestInvalidateLeavesOtherNamespaces(t *testing.T) {
	store := kv.NewMemoryStore()
	rc := newTestCache(store, time.Minute, time.Now)
	ctx := context.Background()

	require.NoError(t, store.SetWithExpiry(ctx, "rb:recipe:abc", "x", 0))
	require.NoError(t, store.SetWithExpiry(ctx, "rb:shoppinglist:def", "y", 0))

	removed, err := rc.Invalidate(ctx, "recipe:*")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())
}

func TestCacheFailsOpenOnStoreError(t *testing.T) {
	rc := newTestCache(failingStore{}, time.Minute, time.Now)

	hits := 0
	engine := cachedEngine(rc, &hits)

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)
}

func TestPerStageTTLOverride(t *testing.T) {
	store := kv.NewMemoryStore()
	current := time.Now()
	now := func() time.Time { return current }
	store.SetClock(now)
	rc := newTestCache(store, time.Minute, now)

	hits := 0
	engine := gin.New()
	engine.GET("/short",
		NewRequestContext(config.ClassAPI, nil),
		rc.Middleware("recipe", WithTTL(5*time.Second)),
		func(c *gin.Context) {
			hits++
			c.JSON(http.StatusOK, gin.H{"hits": hits})
		},
	)

	doRequest(engine, http.MethodGet, "/short", nil)
	current = current.Add(6 * time.Second)
	w := doRequest(engine, http.MethodGet, "/short", nil)

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, hits)
}
