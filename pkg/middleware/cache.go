package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/kv"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/observability"
)

// CacheEntry is the stored form of a cached response.
type CacheEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ResponseCache serves previously computed GET responses from the
// key-value store and captures new ones as they are written. Cache
// backend failures never fail the request; the chain falls through to
// the handler uncached.
type ResponseCache struct {
	store   kv.Store
	ttl     time.Duration
	prefix  string
	log     *logger.Logger
	metrics *observability.PipelineMetrics
	now     func() time.Time
}

// CacheOption configures one cache middleware stage.
type CacheOption func(*cacheStage)

type cacheStage struct {
	namespace string
	ttl       time.Duration
	condition func(*http.Request) bool
}

// WithTTL overrides the default TTL for this stage.
func WithTTL(ttl time.Duration) CacheOption {
	return func(s *cacheStage) { s.ttl = ttl }
}

// WithCondition restricts caching to requests the predicate accepts.
func WithCondition(cond func(*http.Request) bool) CacheOption {
	return func(s *cacheStage) { s.condition = cond }
}

// ResponseCacheOption configures a ResponseCache.
type ResponseCacheOption func(*ResponseCache)

// WithCacheClock overrides the cache's time source. Test helper.
func WithCacheClock(now func() time.Time) ResponseCacheOption {
	return func(rc *ResponseCache) { rc.now = now }
}

// WithCacheMetrics attaches pipeline metrics.
func WithCacheMetrics(m *observability.PipelineMetrics) ResponseCacheOption {
	return func(rc *ResponseCache) { rc.metrics = m }
}

// NewResponseCache creates a response cache with the given default TTL
// and key prefix.
func NewResponseCache(store kv.Store, defaultTTL time.Duration, keyPrefix string, log *logger.Logger, opts ...ResponseCacheOption) *ResponseCache {
	rc := &ResponseCache{
		store:  store,
		ttl:    defaultTTL,
		prefix: keyPrefix,
		log:    log.WithComponent("cache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Key computes the deterministic cache key for a request. The digest
// covers the path, the sorted query parameters, the sorted body fields,
// and the authenticated user, so two logically identical requests always
// map to the same entry regardless of field ordering at the sender.
func (rc *ResponseCache) Key(namespace, path string, query url.Values, body map[string]interface{}, userID string) string {
	var b strings.Builder
	b.WriteString(path)

	b.WriteByte('?')
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		// Escape both sides so a value containing "&" or "=" cannot
		// collide with a structurally different query.
		for _, v := range vals {
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			b.WriteByte('&')
		}
	}

	if len(body) > 0 {
		// json.Marshal sorts map keys, so the serialization is stable.
		raw, err := json.Marshal(body)
		if err == nil {
			b.WriteByte('|')
			b.Write(raw)
		}
	}

	if userID != "" {
		b.WriteString("|u=")
		b.WriteString(userID)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return rc.prefix + namespace + ":" + hex.EncodeToString(sum[:16])
}

// Invalidate removes every cached entry matching the namespace pattern
// (e.g. "recipe:*") and returns the number removed. Mutating handlers
// call this after writes.
func (rc *ResponseCache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	count, err := rc.store.DeleteByPattern(ctx, rc.prefix+pattern)
	if err != nil {
		rc.log.LogError(err, "cache invalidation failed", "pattern", pattern)
		return 0, err
	}
	rc.metrics.RecordInvalidation(ctx, pattern, count)
	return count, nil
}

// lookup returns the live entry for key, deleting it eagerly when stale.
func (rc *ResponseCache) lookup(ctx context.Context, key string, ttl time.Duration) (*CacheEntry, bool) {
	raw, err := rc.store.Get(ctx, key)
	if err != nil {
		if err != kv.ErrNotFound {
			rc.log.LogError(err, "cache lookup failed, falling through", "key", key)
		}
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		rc.log.LogError(err, "corrupt cache entry, evicting", "key", key)
		_ = rc.store.Delete(ctx, key)
		return nil, false
	}

	if rc.now().Sub(entry.CreatedAt) > ttl {
		_ = rc.store.Delete(ctx, key)
		return nil, false
	}

	return &entry, true
}

// bodyCapture tees the response body so a successful outcome can be
// persisted after the handler runs.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware returns the cache stage for a namespace. Only GET requests
// participate; on a hit the stored response is replayed and the chain
// stops, on a miss the outgoing response is captured and persisted when
// the status is 2xx.
func (rc *ResponseCache) Middleware(namespace string, opts ...CacheOption) gin.HandlerFunc {
	stage := &cacheStage{
		namespace: namespace,
		ttl:       rc.ttl,
		condition: func(*http.Request) bool { return true },
	}
	for _, opt := range opts {
		opt(stage)
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || !stage.condition(c.Request) {
			c.Next()
			return
		}

		reqCtx := GetRequestContext(c)
		key := rc.Key(namespace, c.Request.URL.Path, c.Request.URL.Query(), requestBodyFields(c), reqCtx.UserID)

		if entry, ok := rc.lookup(c.Request.Context(), key, stage.ttl); ok {
			rc.metrics.RecordCacheHit(c.Request.Context(), namespace)
			age := int(rc.now().Sub(entry.CreatedAt).Seconds())
			for k, vals := range entry.Headers {
				for _, v := range vals {
					c.Writer.Header().Add(k, v)
				}
			}
			c.Header("X-Cache", "HIT")
			c.Header("X-Cache-Age", strconv.Itoa(age))
			contentType := ""
			if vals := entry.Headers["Content-Type"]; len(vals) > 0 {
				contentType = vals[0]
			}
			c.Data(entry.StatusCode, contentType, entry.Body)
			c.Abort()
			return
		}

		rc.metrics.RecordCacheMiss(c.Request.Context(), namespace)
		c.Header("X-Cache", "MISS")

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture

		c.Next()

		status := capture.Status()
		if status < 200 || status >= 300 {
			return
		}

		entry := CacheEntry{
			StatusCode: status,
			Headers:    captureHeaders(capture.Header()),
			Body:       capture.buf.Bytes(),
			CreatedAt:  rc.now(),
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			rc.log.LogError(err, "failed to encode cache entry", "key", key)
			return
		}
		if err := rc.store.SetWithExpiry(c.Request.Context(), key, string(raw), stage.ttl); err != nil {
			rc.log.LogError(err, "failed to store cache entry", "key", key)
		}
	}
}

// captureHeaders copies the response headers worth replaying, skipping
// the per-request cache markers. Multi-valued headers keep every value.
func captureHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if k == "X-Cache" || k == "X-Cache-Age" {
			continue
		}
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// requestBodyFields parses a JSON request body into its top-level fields
// for key derivation, restoring the body for downstream readers.
func requestBodyFields(c *gin.Context) map[string]interface{} {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}

	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}
