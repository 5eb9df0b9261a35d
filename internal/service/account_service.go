package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"recipe-box/backend/internal/models"
	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/middleware"

	"gorm.io/gorm"
)

var (
	ErrAccountAlreadyExists = errors.New("account with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidRole          = errors.New("invalid role")
	ErrTrialAlreadyUsed     = errors.New("trial has already been used")
)

// TrialDuration is how long a free trial lasts once started.
const TrialDuration = 14 * 24 * time.Hour

// AccountService handles account-related operations
type AccountService struct {
	db  *gorm.DB
	jwt *jwt.Service
}

// NewAccountService creates a new account service
func NewAccountService(db *gorm.DB, jwtService *jwt.Service) *AccountService {
	return &AccountService{db: db, jwt: jwtService}
}

// CreateAccount registers a new account and returns a signed token
func (s *AccountService) CreateAccount(req *models.CreateAccountRequest) (*models.Account, string, error) {
	var existing models.Account
	result := s.db.Where("email = ?", req.Email).First(&existing)
	if result.RowsAffected > 0 {
		return nil, "", ErrAccountAlreadyExists
	}

	account := models.Account{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	if err := s.db.Create(&account).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(formatID(account.ID), account.Email, jwt.Role(account.Role))
	if err != nil {
		return nil, "", err
	}

	return &account, token, nil
}

// Login authenticates an account and returns a signed token
func (s *AccountService) Login(req *models.LoginRequest) (*models.Account, string, error) {
	var account models.Account
	result := s.db.Where("email = ?", req.Email).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, account.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(formatID(account.ID), account.Email, jwt.Role(account.Role))
	if err != nil {
		return nil, "", err
	}

	s.db.Model(&account).Update("last_login", time.Now())

	return &account, token, nil
}

// GetAccount retrieves an account by numeric ID
func (s *AccountService) GetAccount(id uint) (*models.Account, error) {
	var account models.Account
	result := s.db.First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// UpdateAccountRole changes an account's role, admin only at the API layer
func (s *AccountService) UpdateAccountRole(id uint, role string) (*models.Account, error) {
	switch jwt.Role(role) {
	case jwt.RoleUser, jwt.RoleModerator, jwt.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}

	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(account).Update("role", role).Error; err != nil {
		return nil, err
	}
	account.Role = role
	return account, nil
}

// StartTrial begins the one-time free trial for an account
func (s *AccountService) StartTrial(id uint) (*models.Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	if account.HasUsedTrial {
		return nil, ErrTrialAlreadyUsed
	}

	start := time.Now()
	end := start.Add(TrialDuration)
	updates := map[string]interface{}{
		"trial_start_date": start,
		"trial_end_date":   end,
		"has_used_trial":   true,
	}
	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}

	account.TrialStartDate = &start
	account.TrialEndDate = &end
	account.HasUsedTrial = true
	return account, nil
}

// ActivateSubscription marks an account's subscription active until expiresAt
func (s *AccountService) ActivateSubscription(id uint, expiresAt time.Time) (*models.Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"subscription_status":     models.SubscriptionActive,
		"subscription_expires_at": expiresAt,
	}
	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}

	account.SubscriptionStatus = models.SubscriptionActive
	account.SubscriptionExpiresAt = &expiresAt
	return account, nil
}

// CancelSubscription marks an account's subscription cancelled. Premium
// access ends immediately; only an active status grants the premium tier.
func (s *AccountService) CancelSubscription(id uint) (*models.Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(account).Update("subscription_status", models.SubscriptionCancelled).Error; err != nil {
		return nil, err
	}

	account.SubscriptionStatus = models.SubscriptionCancelled
	return account, nil
}

// GetAccountByID implements middleware.AccountLookup. A missing account
// yields (nil, nil) so the gate treats the caller as free tier.
func (s *AccountService) GetAccountByID(ctx context.Context, userID string) (*middleware.Account, error) {
	id, err := parseID(userID)
	if err != nil {
		return nil, nil
	}

	var account models.Account
	result := s.db.WithContext(ctx).First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	out := &middleware.Account{
		ID:             userID,
		Role:           jwt.Role(account.Role),
		TrialStartDate: account.TrialStartDate,
		TrialEndDate:   account.TrialEndDate,
		HasUsedTrial:   account.HasUsedTrial,
	}
	if account.SubscriptionStatus != "" {
		out.Subscription = &middleware.Subscription{
			Status: account.SubscriptionStatus,
		}
		if account.SubscriptionExpiresAt != nil {
			out.Subscription.ExpiresAt = *account.SubscriptionExpiresAt
		}
	}
	return out, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	return uint(id), err
}
