package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/jwt"
)

func TestClientKey(t *testing.T) {
	anon := RequestContext{ClientIP: "1.2.3.4"}
	assert.Equal(t, "1.2.3.4", anon.ClientKey())

	authed := RequestContext{ClientIP: "1.2.3.4", UserID: "42"}
	assert.Equal(t, "1.2.3.4-42", authed.ClientKey())
}

func TestWithTierReturnsCopy(t *testing.T) {
	rc := RequestContext{ClientIP: "1.2.3.4", Tier: TierFree}
	annotated := rc.WithTier(TierPremium)

	assert.Equal(t, TierPremium, annotated.Tier)
	assert.Equal(t, TierFree, rc.Tier, "original must stay untouched")
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	token, ok = bearerToken("bearer abc123")
	assert.True(t, ok, "scheme match is case insensitive")
	assert.Equal(t, "abc123", token)

	_, ok = bearerToken("Basic abc123")
	assert.False(t, ok)

	_, ok = bearerToken("")
	assert.False(t, ok)
}

func contextProbe(routeClass string, verifier jwt.Verifier, out *RequestContext) *gin.Engine {
	engine := gin.New()
	engine.GET("/probe",
		NewRequestContext(routeClass, verifier),
		func(c *gin.Context) {
			*out = GetRequestContext(c)
			c.Status(http.StatusOK)
		},
	)
	return engine
}

func TestNewRequestContextAnonymous(t *testing.T) {
	var got RequestContext
	engine := contextProbe(config.ClassPublic, nil, &got)

	doRequest(engine, http.MethodGet, "/probe", nil)

	assert.False(t, got.Authenticated())
	assert.Equal(t, config.ClassPublic, got.RouteClass)
	assert.Equal(t, TierFree, got.Tier)
	assert.NotEmpty(t, got.ClientIP)
}

func TestNewRequestContextWithValidToken(t *testing.T) {
	svc := jwt.NewService("test-secret", "recipe-box", time.Hour)
	token, err := svc.GenerateToken("42", "cook@example.com", jwt.RoleUser)
	require.NoError(t, err)

	var got RequestContext
	engine := contextProbe(config.ClassAPI, svc, &got)

	doRequest(engine, http.MethodGet, "/probe", map[string]string{
		"Authorization": "Bearer " + token,
	})

	assert.True(t, got.Authenticated())
	assert.Equal(t, "42", got.UserID)
	assert.Equal(t, "cook@example.com", got.Email)
	assert.Equal(t, jwt.RoleUser, got.Role)
}

func TestNewRequestContextInvalidTokenIsAnonymous(t *testing.T) {
	svc := jwt.NewService("test-secret", "recipe-box", time.Hour)

	var got RequestContext
	engine := contextProbe(config.ClassAPI, svc, &got)

	doRequest(engine, http.MethodGet, "/probe", map[string]string{
		"Authorization": "Bearer not-a-token",
	})

	assert.False(t, got.Authenticated())
}

func TestClientIPPrecedence(t *testing.T) {
	var got RequestContext
	engine := contextProbe(config.ClassAPI, nil, &got)

	doRequest(engine, http.MethodGet, "/probe", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		"X-Real-IP":       "198.51.100.2",
	})
	assert.Equal(t, "203.0.113.7", got.ClientIP)

	doRequest(engine, http.MethodGet, "/probe", map[string]string{
		"X-Real-IP": "198.51.100.2",
	})
	assert.Equal(t, "198.51.100.2", got.ClientIP)
}
