package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/observability"
)

// Subscription is the billing state consumed from the account store.
type Subscription struct {
	Status    string    // active, cancelled, expired
	ExpiresAt time.Time
}

// Account is the view of a user account the gate needs to resolve an
// access tier. It is read from the account store on every gated request
// and never persisted by the pipeline.
type Account struct {
	ID             string
	Role           jwt.Role
	Subscription   *Subscription
	TrialStartDate *time.Time
	TrialEndDate   *time.Time
	HasUsedTrial   bool
}

// AccountLookup fetches accounts from storage. Returns (nil, nil) when
// the account does not exist.
type AccountLookup interface {
	GetAccountByID(ctx context.Context, id string) (*Account, error)
}

// SubscriptionGate computes the caller's access tier and enforces
// feature gating. Tier precedence, first match wins: anonymous -> free;
// admin role -> admin; active unexpired subscription -> premium; inside
// an unexpired trial window -> trial; otherwise free.
type SubscriptionGate struct {
	accounts AccountLookup
	log      *logger.Logger
	metrics  *observability.PipelineMetrics
	now      func() time.Time
}

// SubscriptionGateOption configures a SubscriptionGate.
type SubscriptionGateOption func(*SubscriptionGate)

// WithGateClock overrides the gate's time source. Test helper.
func WithGateClock(now func() time.Time) SubscriptionGateOption {
	return func(g *SubscriptionGate) { g.now = now }
}

// WithGateMetrics attaches pipeline metrics.
func WithGateMetrics(m *observability.PipelineMetrics) SubscriptionGateOption {
	return func(g *SubscriptionGate) { g.metrics = m }
}

// NewSubscriptionGate creates a gate backed by the given account store.
func NewSubscriptionGate(accounts AccountLookup, log *logger.Logger, opts ...SubscriptionGateOption) *SubscriptionGate {
	g := &SubscriptionGate{
		accounts: accounts,
		log:      log.WithComponent("subscription"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveTier computes the access tier for a user ID. An empty ID is
// anonymous and resolves to free without a lookup.
func (g *SubscriptionGate) ResolveTier(ctx context.Context, userID string) (Tier, error) {
	if userID == "" {
		return TierFree, nil
	}

	acct, err := g.accounts.GetAccountByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return TierFree, nil
	}
	return g.tierOf(acct), nil
}

func (g *SubscriptionGate) tierOf(acct *Account) Tier {
	now := g.now()

	// Admin outranks subscription state entirely: an admin with an
	// expired subscription is still admin.
	if acct.Role == jwt.RoleAdmin {
		return TierAdmin
	}

	if sub := acct.Subscription; sub != nil {
		if sub.Status == "active" && sub.ExpiresAt.After(now) {
			return TierPremium
		}
	}

	if acct.TrialStartDate != nil && acct.TrialEndDate != nil {
		if !now.Before(*acct.TrialStartDate) && !now.After(*acct.TrialEndDate) {
			return TierTrial
		}
	}

	return TierFree
}

// RequirePremium rejects with 403 unless the caller's tier is premium or
// admin. Account store failures here are escalated as 500: silently
// granting or denying premium access on a lookup failure is worse than a
// visible error.
func (g *SubscriptionGate) RequirePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if !rc.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		tier, err := g.ResolveTier(c.Request.Context(), rc.UserID)
		if err != nil {
			g.log.LogError(err, "account lookup failed on blocking subscription check",
				"user_id", rc.UserID,
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Unable to verify subscription",
			})
			return
		}

		g.metrics.RecordTier(c.Request.Context(), string(tier))
		setRequestContext(c, rc.WithTier(tier))

		if tier != TierPremium && tier != TierAdmin {
			g.log.Warn("premium access denied",
				"user_id", rc.UserID,
				"tier", string(tier),
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Premium subscription required",
			})
			return
		}

		c.Next()
	}
}

// CheckSubscriptionStatus resolves the tier and annotates the request
// context for downstream handlers without ever rejecting. Lookup
// failures degrade to the free tier.
func (g *SubscriptionGate) CheckSubscriptionStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)

		tier, err := g.ResolveTier(c.Request.Context(), rc.UserID)
		if err != nil {
			g.log.LogError(err, "account lookup failed on status check, treating as free",
				"user_id", rc.UserID,
			)
			tier = TierFree
		}

		g.metrics.RecordTier(c.Request.Context(), string(tier))
		setRequestContext(c, rc.WithTier(tier))
		c.Next()
	}
}

// RequireRole rejects unless the account's stored role matches. Admin
// implicitly satisfies any role check.
func (g *SubscriptionGate) RequireRole(role jwt.Role) gin.HandlerFunc {
	return g.RequireAnyRole(role)
}

// RequireAnyRole rejects unless the account's stored role is one of the
// given roles (or admin). Like RequirePremium, store failures are a 500.
func (g *SubscriptionGate) RequireAnyRole(roles ...jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetRequestContext(c)
		if !rc.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		acct, err := g.accounts.GetAccountByID(c.Request.Context(), rc.UserID)
		if err != nil {
			g.log.LogError(err, "account lookup failed on role check", "user_id", rc.UserID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Unable to verify role",
			})
			return
		}

		if acct != nil {
			if acct.Role == jwt.RoleAdmin {
				c.Next()
				return
			}
			for _, role := range roles {
				if acct.Role == role {
					c.Next()
					return
				}
			}
		}

		g.log.Warn("role access denied",
			"user_id", rc.UserID,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Your role does not allow this operation",
		})
	}
}
