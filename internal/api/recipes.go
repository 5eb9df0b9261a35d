package api

import (
	"net/http"
	"strconv"

	"recipe-box/backend/internal/models"
	"recipe-box/backend/internal/service"
	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// RecipeCacheNamespace is the cache namespace for recipe reads. Mutations
// invalidate every key under it.
const RecipeCacheNamespace = "recipe"

// RecipeHandler handles recipe CRUD requests
type RecipeHandler struct {
	recipes *service.RecipeService
	cache   *middleware.ResponseCache
	logger  *logger.Logger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipes *service.RecipeService, cache *middleware.ResponseCache, logger *logger.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipes: recipes,
		cache:   cache,
		logger:  logger,
	}
}

// invalidateRecipeCache drops all cached recipe responses after a write.
// Invalidation failures are logged, never surfaced to the caller.
func (h *RecipeHandler) invalidateRecipeCache(c *gin.Context) {
	removed, err := h.cache.Invalidate(c.Request.Context(), RecipeCacheNamespace+":*")
	if err != nil {
		h.logger.Warn("Failed to invalidate recipe cache", "error", err.Error())
		return
	}
	h.logger.Debug("Recipe cache invalidated", "removed", removed)
}

// ListRecipes returns published recipes with optional cuisine filter and paging
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	cuisine := c.Query("cuisine")

	recipes, err := h.recipes.ListRecipes(cuisine, limit, offset)
	if err != nil {
		h.logger.Error("Error listing recipes", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recipes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "count": len(recipes)})
}

// GetRecipe returns a single recipe by ID
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	recipe, err := h.recipes.GetRecipe(uint(id))
	if err != nil {
		switch err {
		case service.ErrRecipeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		default:
			h.logger.Error("Error getting recipe", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recipe"})
		}
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// CreateRecipe stores a new recipe owned by the current account
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	recipe, err := h.recipes.CreateRecipe(accountID, &req)
	if err != nil {
		h.logger.Error("Error creating recipe", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
		return
	}

	h.invalidateRecipeCache(c)
	c.JSON(http.StatusCreated, recipe)
}

// UpdateRecipe applies a partial update to a recipe the caller owns
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var req models.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	recipe, err := h.recipes.UpdateRecipe(uint(id), accountID, &req)
	if err != nil {
		switch err {
		case service.ErrRecipeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		case service.ErrNotRecipeOwner:
			c.JSON(http.StatusForbidden, gin.H{"error": "You may only edit your own recipes"})
		default:
			h.logger.Error("Error updating recipe", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		}
		return
	}

	h.invalidateRecipeCache(c)
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe removes a recipe the caller owns. Admins may delete any recipe.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	isAdmin := reqCtx.Role == jwt.RoleAdmin

	if err := h.recipes.DeleteRecipe(uint(id), accountID, isAdmin); err != nil {
		switch err {
		case service.ErrRecipeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		case service.ErrNotRecipeOwner:
			c.JSON(http.StatusForbidden, gin.H{"error": "You may only delete your own recipes"})
		default:
			h.logger.Error("Error deleting recipe", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipe"})
		}
		return
	}

	h.invalidateRecipeCache(c)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Nutrition returns the calorie breakdown for a recipe. The route sits
// behind the premium gate.
func (h *RecipeHandler) Nutrition(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	summary, err := h.recipes.Nutrition(uint(id))
	if err != nil {
		switch err {
		case service.ErrRecipeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		default:
			h.logger.Error("Error computing nutrition", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute nutrition"})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
