package api

import (
	"net/http"

	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/middleware"
	"recipe-box/backend/pkg/resilience"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operational controls over the request pipeline.
// Every route is gated on the admin role.
type AdminHandler struct {
	limiter *middleware.RateLimiter
	cache   *middleware.ResponseCache
	breaker *resilience.CircuitBreaker
	logger  *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(limiter *middleware.RateLimiter, cache *middleware.ResponseCache, breaker *resilience.CircuitBreaker, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		limiter: limiter,
		cache:   cache,
		breaker: breaker,
		logger:  logger,
	}
}

type resetRateLimitRequest struct {
	ClientKey  string `json:"client_key" binding:"required"`
	RouteClass string `json:"route_class" binding:"required"`
}

// ResetRateLimit clears the counter for one client key in one route class
func (h *AdminHandler) ResetRateLimit(c *gin.Context) {
	var req resetRateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if _, ok := h.limiter.Classes()[req.RouteClass]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown route class"})
		return
	}

	if err := h.limiter.Reset(c.Request.Context(), req.ClientKey, req.RouteClass); err != nil {
		h.logger.Error("Error resetting rate limit", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset rate limit"})
		return
	}

	h.logger.Info("Rate limit reset",
		"clientKey", req.ClientKey,
		"routeClass", req.RouteClass,
	)
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// RateLimitPolicies returns the configured policy for each route class
func (h *AdminHandler) RateLimitPolicies(c *gin.Context) {
	classes := h.limiter.Classes()
	policies := make(map[string]gin.H, len(classes))
	for name, class := range classes {
		policies[name] = gin.H{
			"window_ms":    class.Window.Milliseconds(),
			"max_requests": class.MaxRequests,
			"burst":        h.limiter.BurstAllowance(name),
		}
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies})
}

type invalidateCacheRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// InvalidateCache removes cached responses matching a wildcard pattern
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	var req invalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	removed, err := h.cache.Invalidate(c.Request.Context(), req.Pattern)
	if err != nil {
		h.logger.Error("Error invalidating cache", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}

	h.logger.Info("Cache invalidated", "pattern", req.Pattern, "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// PipelineStatus reports the circuit breaker state guarding the key-value store
func (h *AdminHandler) PipelineStatus(c *gin.Context) {
	status := gin.H{"breaker": nil}
	if h.breaker != nil {
		status["breaker"] = h.breaker.Metrics()
	}
	c.JSON(http.StatusOK, status)
}
