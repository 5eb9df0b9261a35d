package jwt

import (
	"time"
)

// Verifier validates bearer tokens. The pipeline depends on this
// interface rather than on the concrete service so tests can stub it.
type Verifier interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Service signs and validates access tokens with an HMAC secret.
type Service struct {
	secretKey string
	issuer    string
	expiry    time.Duration
}

// NewService creates a new JWT service.
func NewService(secretKey, issuer string, expiry time.Duration) *Service {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		secretKey: secretKey,
		issuer:    issuer,
		expiry:    expiry,
	}
}

// GenerateToken signs an access token for a user.
func (s *Service) GenerateToken(userID, email string, role Role) (string, error) {
	return generateToken(s.secretKey, s.issuer, s.expiry, userID, email, role)
}

// ValidateToken validates a token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(s.secretKey, tokenString)
}
