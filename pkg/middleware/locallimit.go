package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"recipe-box/backend/pkg/logger"
)

// LocalLimiterOptions configures the process-local limiter.
type LocalLimiterOptions struct {
	// Limit defines requests per second.
	Limit rate.Limit
	// Burst defines maximum burst size allowed.
	Burst int
	// ExpiryDuration defines how long to keep idle client state in memory.
	ExpiryDuration time.Duration
}

// DefaultLocalLimiterOptions returns sensible defaults for the
// high-volume route classes.
func DefaultLocalLimiterOptions() LocalLimiterOptions {
	return LocalLimiterOptions{
		Limit:          50,
		Burst:          100,
		ExpiryDuration: time.Hour,
	}
}

type localClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is a per-process token bucket placed in front of the
// distributed limiter on the public and scraping classes. It sheds
// obvious floods before they cost a round trip to the shared store; the
// distributed limiter remains the authority on the actual quota.
type LocalLimiter struct {
	mu      sync.Mutex
	options LocalLimiterOptions
	clients map[string]*localClient
	log     *logger.Logger
}

// NewLocalLimiter creates a local limiter.
func NewLocalLimiter(log *logger.Logger, options ...LocalLimiterOptions) *LocalLimiter {
	opts := DefaultLocalLimiterOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &LocalLimiter{
		options: opts,
		clients: make(map[string]*localClient),
		log:     log.WithComponent("locallimit"),
	}
}

// Middleware returns the Gin stage for the local limiter.
func (l *LocalLimiter) Middleware() gin.HandlerFunc {
	go l.cleanup()

	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		key := rc.ClientKey()
		if key == "" {
			key = c.ClientIP()
		}

		if !l.getLimiter(key).Allow() {
			l.log.Warn("local limiter shed request",
				"client", key,
				"path", c.Request.URL.Path,
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"message":    "Too many requests. Please try again later.",
				"retryAfter": 1,
			})
			return
		}

		c.Next()
	}
}

func (l *LocalLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.clients[key]
	if !exists {
		limiter := rate.NewLimiter(l.options.Limit, l.options.Burst)
		l.clients[key] = &localClient{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup removes idle entries so the map stays bounded.
func (l *LocalLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for k, v := range l.clients {
			if time.Since(v.lastSeen) > l.options.ExpiryDuration {
				delete(l.clients, k)
			}
		}
		l.mu.Unlock()
	}
}
