package models

import (
	"time"

	"recipe-box/backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Subscription states stored on an account.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Account represents a registered user of the service
type Account struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `gorm:"uniqueIndex" json:"email"`
	Password              string     `json:"-"` // Never return password in JSON
	Role                  string     `json:"role" gorm:"default:user"`
	SubscriptionStatus    string     `json:"subscription_status,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	TrialStartDate        *time.Time `json:"trial_start_date,omitempty"`
	TrialEndDate          *time.Time `json:"trial_end_date,omitempty"`
	HasUsedTrial          bool       `json:"has_used_trial"`
	LastLogin             time.Time  `json:"last_login,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CreateAccountRequest is the request structure for registration
type CreateAccountRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the request structure for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateRoleRequest changes an account's role, admin only
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateSubscriptionRequest activates or cancels a subscription, admin only.
// ExpiresAt is required when activating.
type UpdateSubscriptionRequest struct {
	Status    string     `json:"status" binding:"required,oneof=active cancelled"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// AccountResponse is the response structure for account data
type AccountResponse struct {
	ID                    uint       `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Role                  string     `json:"role"`
	SubscriptionStatus    string     `json:"subscription_status,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	TrialEndDate          *time.Time `json:"trial_end_date,omitempty"`
	HasUsedTrial          bool       `json:"has_used_trial"`
	LastLogin             time.Time  `json:"last_login,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BeforeCreate is a GORM hook to hash the password before saving
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	hashedPassword, err := HashPassword(a.Password)
	if err != nil {
		return err
	}
	a.Password = hashedPassword

	if a.Role == "" {
		a.Role = string(jwt.RoleUser)
	}

	return nil
}

// ToResponse converts an Account model to an AccountResponse
func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		ID:                    a.ID,
		Name:                  a.Name,
		Email:                 a.Email,
		Role:                  a.Role,
		SubscriptionStatus:    a.SubscriptionStatus,
		SubscriptionExpiresAt: a.SubscriptionExpiresAt,
		TrialEndDate:          a.TrialEndDate,
		HasUsedTrial:          a.HasUsedTrial,
		LastLogin:             a.LastLogin,
		CreatedAt:             a.CreatedAt,
	}
}
