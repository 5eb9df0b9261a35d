package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/kv"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/observability"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// RateLimiter admits or rejects requests with a fixed-window token bucket
// per (client key, route class), backed by the shared key-value store so
// limits hold across server instances.
//
// Window semantics: the bucket starts full and every call consumes one
// token, including calls that end up rejected. Tokens are not trickled
// back; the bucket resets to full when the window elapses. A burst
// allowance (a fraction of the class maximum) absorbs short spikes above
// the nominal ceiling.
type RateLimiter struct {
	store         kv.Store
	classes       map[string]config.RouteClassConfig
	burstFraction float64
	prefix        string
	log           *logger.Logger
	metrics       *observability.PipelineMetrics
	now           func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimitClock overrides the limiter's time source. Test helper.
func WithRateLimitClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// WithRateLimitMetrics attaches pipeline metrics.
func WithRateLimitMetrics(m *observability.PipelineMetrics) RateLimiterOption {
	return func(rl *RateLimiter) { rl.metrics = m }
}

// NewRateLimiter creates a rate limiter for the given route classes.
func NewRateLimiter(store kv.Store, classes map[string]config.RouteClassConfig, burstFraction float64, keyPrefix string, log *logger.Logger, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		store:         store,
		classes:       classes,
		burstFraction: burstFraction,
		prefix:        keyPrefix,
		log:           log.WithComponent("ratelimit"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *RateLimiter) bucketKey(clientKey, routeClass string) string {
	return rl.prefix + "ratelimit:" + routeClass + ":" + clientKey
}

// BurstAllowance returns the extra tokens permitted above the class
// maximum before rejection.
func (rl *RateLimiter) BurstAllowance(routeClass string) int {
	cls, ok := rl.classes[routeClass]
	if !ok {
		return 0
	}
	return int(float64(cls.MaxRequests) * rl.burstFraction)
}

// CheckAndConsume draws one token from the bucket for (clientKey,
// routeClass) and reports whether the request is admitted.
//
// When the backing store is unreachable the limiter fails open: blocking
// all traffic because a counter store is down is a worse outcome than
// briefly under-enforcing limits.
func (rl *RateLimiter) CheckAndConsume(ctx context.Context, clientKey, routeClass string) Decision {
	cls, ok := rl.classes[routeClass]
	if !ok {
		// Unknown class carries no policy; admit.
		return Decision{Allowed: true, Remaining: -1}
	}

	key := rl.bucketKey(clientKey, routeClass)
	count, err := rl.store.Increment(ctx, key)
	if err != nil {
		rl.log.LogError(err, "rate limit store unavailable, failing open",
			"client_key", clientKey,
			"route_class", routeClass,
		)
		return Decision{Allowed: true, Remaining: -1}
	}

	if count == 1 {
		// First draw of a fresh window. The counter key expires at the
		// window boundary so the bucket resets to full; the window-start
		// marker lives twice as long so rejected stragglers can still
		// compute Retry-After.
		if err := rl.store.Expire(ctx, key, cls.Window); err != nil {
			rl.log.LogError(err, "failed to set bucket expiry", "key", key)
		}
		startMs := strconv.FormatInt(rl.now().UnixMilli(), 10)
		if err := rl.store.SetWithExpiry(ctx, key+":window", startMs, 2*cls.Window); err != nil {
			rl.log.LogError(err, "failed to record window start", "key", key)
		}
	}

	limit := int64(cls.MaxRequests + rl.BurstAllowance(routeClass))
	if count > limit {
		return Decision{
			Allowed:           false,
			Remaining:         0,
			RetryAfterSeconds: rl.retryAfter(ctx, key, cls.Window),
		}
	}

	remaining := cls.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}
}

// retryAfter computes the seconds until the current window resets,
// falling back to the full window when the start marker is gone.
func (rl *RateLimiter) retryAfter(ctx context.Context, key string, window time.Duration) int {
	fallback := int(window.Seconds())
	raw, err := rl.store.Get(ctx, key+":window")
	if err != nil {
		return fallback
	}
	startMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	resetAt := time.UnixMilli(startMs).Add(window)
	secs := int(resetAt.Sub(rl.now()).Seconds() + 0.999)
	if secs <= 0 || secs > fallback {
		return fallback
	}
	return secs
}

// Reset removes the bucket for (clientKey, routeClass). Admin operation.
func (rl *RateLimiter) Reset(ctx context.Context, clientKey, routeClass string) error {
	key := rl.bucketKey(clientKey, routeClass)
	return rl.store.Delete(ctx, key, key+":window")
}

// Classes returns the configured route class policies for the admin
// stats endpoint.
func (rl *RateLimiter) Classes() map[string]config.RouteClassConfig {
	out := make(map[string]config.RouteClassConfig, len(rl.classes))
	for k, v := range rl.classes {
		out[k] = v
	}
	return out
}

// Middleware returns the Gin stage enforcing the route class policy. On
// rejection it responds 429 with a Retry-After header and aborts the
// chain.
func (rl *RateLimiter) Middleware(routeClass string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)

		dec := rl.CheckAndConsume(c.Request.Context(), rc.ClientKey(), routeClass)
		if dec.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
		}

		if !dec.Allowed {
			rl.metrics.RecordThrottled(c.Request.Context(), routeClass)
			rl.log.Warn("request throttled",
				"client_key", rc.ClientKey(),
				"route_class", routeClass,
				"retry_after", dec.RetryAfterSeconds,
			)
			c.Header("Retry-After", strconv.Itoa(dec.RetryAfterSeconds))
			c.AbortWithStatusJSON(429, gin.H{
				"status":     "error",
				"message":    throttleMessage(routeClass),
				"retryAfter": dec.RetryAfterSeconds,
			})
			return
		}

		rl.metrics.RecordAdmitted(c.Request.Context(), routeClass)
		c.Next()
	}
}

func throttleMessage(routeClass string) string {
	switch routeClass {
	case config.ClassAuth:
		return "Too many authentication attempts. Please try again later."
	case config.ClassScraping:
		return "Scraping quota exhausted. Please slow down."
	default:
		return "Too many requests. Please try again later."
	}
}
