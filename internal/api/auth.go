package api

import (
	"net/http"
	"strconv"

	"recipe-box/backend/internal/models"
	"recipe-box/backend/internal/service"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts *service.AccountService
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *service.AccountService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// currentAccountID extracts the authenticated account's numeric ID from
// the request context.
func currentAccountID(c *gin.Context) (uint, bool) {
	reqCtx := middleware.GetRequestContext(c)
	if !reqCtx.Authenticated() {
		return 0, false
	}
	id, err := strconv.ParseUint(reqCtx.UserID, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Signup handles account registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, token, err := h.accounts.CreateAccount(&req)
	if err != nil {
		switch err {
		case service.ErrAccountAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		default:
			h.logger.Error("Error creating account", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": account.ToResponse(),
		"token":   token,
	})
}

// Login handles account authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, token, err := h.accounts.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		default:
			h.logger.Error("Error during login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	h.logger.Info("Account logged in",
		"accountID", account.ID,
		"email", account.Email,
		"role", account.Role,
	)

	c.JSON(http.StatusOK, gin.H{
		"account": account.ToResponse(),
		"token":   token,
	})
}

// Me returns the current authenticated account
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := h.accounts.GetAccount(id)
	if err != nil {
		switch err {
		case service.ErrAccountNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			h.logger.Error("Error getting account", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve account"})
		}
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}

// StartTrial begins the one-time free trial for the current account
func (h *AuthHandler) StartTrial(c *gin.Context) {
	id, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := h.accounts.StartTrial(id)
	if err != nil {
		switch err {
		case service.ErrTrialAlreadyUsed:
			c.JSON(http.StatusConflict, gin.H{"error": "Trial has already been used"})
		case service.ErrAccountNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			h.logger.Error("Error starting trial", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start trial"})
		}
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}

// UpdateAccountSubscription activates or cancels an account's
// subscription, admin only
func (h *AuthHandler) UpdateAccountSubscription(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
		return
	}

	var req models.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var account *models.Account
	switch req.Status {
	case models.SubscriptionActive:
		if req.ExpiresAt == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt is required when activating"})
			return
		}
		account, err = h.accounts.ActivateSubscription(uint(id), *req.ExpiresAt)
	case models.SubscriptionCancelled:
		account, err = h.accounts.CancelSubscription(uint(id))
	}
	if err != nil {
		switch err {
		case service.ErrAccountNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			h.logger.Error("Error updating subscription", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		}
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}

// UpdateAccountRole changes an account's role, admin only
func (h *AuthHandler) UpdateAccountRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
		return
	}

	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, err := h.accounts.UpdateAccountRole(uint(id), req.Role)
	if err != nil {
		switch err {
		case service.ErrInvalidRole:
			c.JSON(http.StatusBadRequest, gin.H{"error": "The provided role is invalid"})
		case service.ErrAccountNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			h.logger.Error("Error updating role", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		}
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}
