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

// ShoppingListCacheNamespace is the cache namespace for shopping list
// reads. Entries are already per-account since the cache key includes
// the authenticated user.
const ShoppingListCacheNamespace = "shoppinglist"

// ShoppingListHandler handles shopping list requests
type ShoppingListHandler struct {
	lists  *service.ShoppingListService
	cache  *middleware.ResponseCache
	logger *logger.Logger
}

// NewShoppingListHandler creates a new shopping list handler
func NewShoppingListHandler(lists *service.ShoppingListService, cache *middleware.ResponseCache, logger *logger.Logger) *ShoppingListHandler {
	return &ShoppingListHandler{
		lists:  lists,
		cache:  cache,
		logger: logger,
	}
}

func (h *ShoppingListHandler) invalidateListCache(c *gin.Context) {
	if _, err := h.cache.Invalidate(c.Request.Context(), ShoppingListCacheNamespace+":*"); err != nil {
		h.logger.Warn("Failed to invalidate shopping list cache", "error", err.Error())
	}
}

// ListShoppingLists returns every list owned by the current account
func (h *ShoppingListHandler) ListShoppingLists(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	lists, err := h.lists.ListForAccount(accountID)
	if err != nil {
		h.logger.Error("Error listing shopping lists", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list shopping lists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shopping_lists": lists, "count": len(lists)})
}

// GetShoppingList returns one list owned by the current account
func (h *ShoppingListHandler) GetShoppingList(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shopping list ID"})
		return
	}

	list, err := h.lists.Get(uint(id), accountID)
	if err != nil {
		switch err {
		case service.ErrShoppingListNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Shopping list not found"})
		default:
			h.logger.Error("Error getting shopping list", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve shopping list"})
		}
		return
	}

	c.JSON(http.StatusOK, list)
}

// CreateShoppingList stores a new list for the current account
func (h *ShoppingListHandler) CreateShoppingList(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateShoppingListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	list, err := h.lists.Create(accountID, &req)
	if err != nil {
		h.logger.Error("Error creating shopping list", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shopping list"})
		return
	}

	h.invalidateListCache(c)
	c.JSON(http.StatusCreated, list)
}

// UpdateShoppingList replaces a list's name or items
func (h *ShoppingListHandler) UpdateShoppingList(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shopping list ID"})
		return
	}

	var req models.UpdateShoppingListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	list, err := h.lists.Update(uint(id), accountID, &req)
	if err != nil {
		switch err {
		case service.ErrShoppingListNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Shopping list not found"})
		default:
			h.logger.Error("Error updating shopping list", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shopping list"})
		}
		return
	}

	h.invalidateListCache(c)
	c.JSON(http.StatusOK, list)
}

// DeleteShoppingList removes a list owned by the current account
func (h *ShoppingListHandler) DeleteShoppingList(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shopping list ID"})
		return
	}

	if err := h.lists.Delete(uint(id), accountID); err != nil {
		switch err {
		case service.ErrShoppingListNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Shopping list not found"})
		default:
			h.logger.Error("Error deleting shopping list", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete shopping list"})
		}
		return
	}

	h.invalidateListCache(c)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
