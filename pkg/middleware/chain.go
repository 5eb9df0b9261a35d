package middleware

import (
	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/jwt"
)

// Chain assembles the interception pipeline for a route. Stages always
// run in the same order: request context, local shed (optional),
// distributed rate limit, response cache (GET routes that opt in),
// subscription gating, then the business handler. Any stage may write a
// response and halt the chain; later stages never run after a
// short-circuit.
//
// The chain performs no business logic itself; it is pure composition
// over constructor-injected filters.
type Chain struct {
	verifier jwt.Verifier
	limiter  *RateLimiter
	cache    *ResponseCache
	gate     *SubscriptionGate
	local    *LocalLimiter
}

// NewChain creates a pipeline composer from the three filters. local may
// be nil when no process-local shedding is wanted.
func NewChain(verifier jwt.Verifier, limiter *RateLimiter, cache *ResponseCache, gate *SubscriptionGate, local *LocalLimiter) *Chain {
	return &Chain{
		verifier: verifier,
		limiter:  limiter,
		cache:    cache,
		gate:     gate,
		local:    local,
	}
}

// Cache exposes the response cache so mutating handlers can invalidate.
func (ch *Chain) Cache() *ResponseCache { return ch.cache }

// Limiter exposes the rate limiter for admin operations.
func (ch *Chain) Limiter() *RateLimiter { return ch.limiter }

// Gate exposes the subscription gate.
func (ch *Chain) Gate() *SubscriptionGate { return ch.gate }

// RouteOption adds gating or caching stages to a route's chain.
type RouteOption func(*routeSpec)

type routeSpec struct {
	cacheNamespace string
	cacheOpts      []CacheOption
	useLocal       bool
	requireAuth    bool
	premium        bool
	statusCheck    bool
	roles          []jwt.Role
}

// Cached enables the response cache under the given namespace.
func Cached(namespace string, opts ...CacheOption) RouteOption {
	return func(s *routeSpec) {
		s.cacheNamespace = namespace
		s.cacheOpts = opts
	}
}

// LocalShed puts the process-local limiter in front of the distributed
// check. Intended for the public and scraping classes.
func LocalShed() RouteOption {
	return func(s *routeSpec) { s.useLocal = true }
}

// Authenticated requires a verified identity.
func Authenticated() RouteOption {
	return func(s *routeSpec) { s.requireAuth = true }
}

// Premium requires a premium-or-better tier.
func Premium() RouteOption {
	return func(s *routeSpec) { s.premium = true }
}

// WithTierAnnotation resolves the caller's tier without rejecting, so
// handlers can vary responses by entitlement.
func WithTierAnnotation() RouteOption {
	return func(s *routeSpec) { s.statusCheck = true }
}

// Roles requires the account's stored role to be one of the given roles.
func Roles(roles ...jwt.Role) RouteOption {
	return func(s *routeSpec) { s.roles = roles }
}

// For returns the ordered middleware stack for a route class.
func (ch *Chain) For(routeClass string, opts ...RouteOption) []gin.HandlerFunc {
	spec := &routeSpec{}
	for _, opt := range opts {
		opt(spec)
	}

	handlers := []gin.HandlerFunc{
		NewRequestContext(routeClass, ch.verifier),
	}

	if spec.useLocal && ch.local != nil {
		handlers = append(handlers, ch.local.Middleware())
	}

	handlers = append(handlers, ch.limiter.Middleware(routeClass))

	if spec.cacheNamespace != "" && ch.cache != nil {
		handlers = append(handlers, ch.cache.Middleware(spec.cacheNamespace, spec.cacheOpts...))
	}

	if spec.requireAuth || spec.premium || len(spec.roles) > 0 {
		handlers = append(handlers, RequireAuth())
	}
	if spec.premium {
		handlers = append(handlers, ch.gate.RequirePremium())
	}
	if len(spec.roles) > 0 {
		handlers = append(handlers, ch.gate.RequireAnyRole(spec.roles...))
	}
	if spec.statusCheck {
		handlers = append(handlers, ch.gate.CheckSubscriptionStatus())
	}

	return handlers
}
