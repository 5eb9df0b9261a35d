package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", "recipe-box", time.Hour)

	token, err := svc.GenerateToken("42", "cook@example.com", RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "cook@example.com", claims.Email)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewService("test-secret", "recipe-box", time.Hour)
	other := NewService("other-secret", "recipe-box", time.Hour)

	token, err := svc.GenerateToken("42", "cook@example.com", RoleUser)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-secret", "recipe-box", -time.Minute)

	token, err := svc.GenerateToken("42", "cook@example.com", RoleUser)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", "recipe-box", time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestHasRole(t *testing.T) {
	admin := &Claims{Role: RoleAdmin}
	assert.True(t, admin.HasRole(RoleUser), "admin satisfies every role")
	assert.True(t, admin.HasRole(RoleAdmin))

	user := &Claims{Role: RoleUser}
	assert.True(t, user.HasRole(RoleUser))
	assert.False(t, user.HasRole(RoleAdmin))
	assert.False(t, user.HasRole(RoleModerator))
}
