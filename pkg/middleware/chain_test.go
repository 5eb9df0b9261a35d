package middleware

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/errors"
	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/kv"
)

// switchAccounts is an AccountLookup whose behavior can change mid-test.
type switchAccounts struct {
	mu   sync.Mutex
	acct *Account
	err  error
}

func (s *switchAccounts) set(acct *Account, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acct = acct
	s.err = err
}

func (s *switchAccounts) GetAccountByID(context.Context, string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct, s.err
}

type chainFixture struct {
	chain    *Chain
	store    *kv.MemoryStore
	accounts *switchAccounts
	jwt      *jwt.Service
}

func newChainFixture(t *testing.T, classes map[string]config.RouteClassConfig) *chainFixture {
	t.Helper()
	log := testLogger()
	store := kv.NewMemoryStore()
	accounts := &switchAccounts{}
	svc := jwt.NewService("test-secret", "recipe-box", time.Hour)

	limiter := NewRateLimiter(store, classes, 0.10, "rb:", log)
	cache := NewResponseCache(store, time.Minute, "rb:", log)
	gate := NewSubscriptionGate(accounts, log)

	return &chainFixture{
		chain:    NewChain(svc, limiter, cache, gate, NewLocalLimiter(log)),
		store:    store,
		accounts: accounts,
		jwt:      svc,
	}
}

func (f *chainFixture) engine(method, path string, handler gin.HandlerFunc, opts ...RouteOption) *gin.Engine {
	engine := gin.New()
	engine.Use(errors.ErrorHandler())
	engine.Handle(method, path, append(f.chain.For(config.ClassAPI, opts...), handler)...)
	return engine
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (f *chainFixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(userID, userID+"@example.com", jwt.RoleUser)
	require.NoError(t, err)
	return token
}

func TestChainThrottlesBeforeCacheLookup(t *testing.T) {
	classes := map[string]config.RouteClassConfig{
		config.ClassAPI: {Window: time.Minute, MaxRequests: 1},
	}
	f := newChainFixture(t, classes)
	engine := f.engine(http.MethodGet, "/recipes", okHandler, Cached("recipe"))

	w := doRequest(engine, http.MethodGet, "/recipes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	// The entry is cached now, but the limiter sits in front of the
	// cache and the budget is spent.
	w = doRequest(engine, http.MethodGet, "/recipes", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestChainCacheHitBypassesGate(t *testing.T) {
	f := newChainFixture(t, testClasses())
	f.accounts.set(&Account{
		Role:         jwt.RoleUser,
		Subscription: &Subscription{Status: "active", ExpiresAt: time.Now().Add(24 * time.Hour)},
	}, nil)

	engine := f.engine(http.MethodGet, "/nutrition", okHandler, Cached("recipe"), Premium())
	headers := map[string]string{"Authorization": "Bearer " + f.token(t, "42")}

	w := doRequest(engine, http.MethodGet, "/nutrition", headers)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	// Account store goes down; the cached response still serves because
	// the gate never runs on a hit.
	f.accounts.set(nil, errStoreDown)

	w = doRequest(engine, http.MethodGet, "/nutrition", headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestChainRequiresAuthBeforeGate(t *testing.T) {
	f := newChainFixture(t, testClasses())
	engine := f.engine(http.MethodGet, "/nutrition", okHandler, Premium())

	w := doRequest(engine, http.MethodGet, "/nutrition", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChainPremiumDenialIsNotCached(t *testing.T) {
	f := newChainFixture(t, testClasses())
	f.accounts.set(&Account{Role: jwt.RoleUser}, nil)

	engine := f.engine(http.MethodGet, "/nutrition", okHandler, Cached("recipe"), Premium())
	headers := map[string]string{"Authorization": "Bearer " + f.token(t, "42")}

	w := doRequest(engine, http.MethodGet, "/nutrition", headers)
	require.Equal(t, http.StatusForbidden, w.Code)

	// The 403 must not be served from cache once the user upgrades.
	f.accounts.set(&Account{
		Role:         jwt.RoleUser,
		Subscription: &Subscription{Status: "active", ExpiresAt: time.Now().Add(24 * time.Hour)},
	}, nil)

	w = doRequest(engine, http.MethodGet, "/nutrition", headers)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChainTierAnnotationIsNonBlocking(t *testing.T) {
	f := newChainFixture(t, testClasses())
	f.accounts.set(nil, errStoreDown)

	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tier": string(GetRequestContext(c).Tier)})
	}
	engine := f.engine(http.MethodGet, "/status", handler, Authenticated(), WithTierAnnotation())
	headers := map[string]string{"Authorization": "Bearer " + f.token(t, "42")}

	w := doRequest(engine, http.MethodGet, "/status", headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(TierFree))
}

func TestChainRoleGate(t *testing.T) {
	f := newChainFixture(t, testClasses())
	f.accounts.set(&Account{Role: jwt.RoleUser}, nil)

	engine := f.engine(http.MethodPost, "/admin", okHandler, Roles(jwt.RoleAdmin))
	headers := map[string]string{"Authorization": "Bearer " + f.token(t, "42")}

	w := doRequest(engine, http.MethodPost, "/admin", headers)
	require.Equal(t, http.StatusForbidden, w.Code)

	f.accounts.set(&Account{Role: jwt.RoleAdmin}, nil)

	w = doRequest(engine, http.MethodPost, "/admin", headers)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChainSeparatesCacheEntriesPerUser(t *testing.T) {
	f := newChainFixture(t, testClasses())

	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetRequestContext(c).UserID})
	}
	engine := f.engine(http.MethodGet, "/lists", handler, Authenticated(), Cached("shoppinglist"))

	w := doRequest(engine, http.MethodGet, "/lists", map[string]string{
		"Authorization": "Bearer " + f.token(t, "42"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")

	w = doRequest(engine, http.MethodGet, "/lists", map[string]string{
		"Authorization": "Bearer " + f.token(t, "43"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "43")
}
