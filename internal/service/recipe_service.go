package service

import (
	"encoding/json"
	"errors"

	"recipe-box/backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrNotRecipeOwner = errors.New("recipe belongs to another account")
)

// RecipeService handles recipe storage and retrieval
type RecipeService struct {
	db *gorm.DB
}

// NewRecipeService creates a new recipe service
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// ListRecipes returns published recipes, optionally filtered by cuisine
func (s *RecipeService) ListRecipes(cuisine string, limit, offset int) ([]models.RecipeResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.db.Where("published = ?", true)
	if cuisine != "" {
		query = query.Where("cuisine_type = ?", cuisine)
	}

	var recipes []models.Recipe
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&recipes).Error; err != nil {
		return nil, err
	}

	responses := make([]models.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		responses = append(responses, toRecipeResponse(&recipes[i]))
	}
	return responses, nil
}

// GetRecipe retrieves a single recipe by ID
func (s *RecipeService) GetRecipe(id uint) (*models.RecipeResponse, error) {
	var recipe models.Recipe
	result := s.db.First(&recipe, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, result.Error
	}
	resp := toRecipeResponse(&recipe)
	return &resp, nil
}

// CreateRecipe stores a new recipe owned by authorID
func (s *RecipeService) CreateRecipe(authorID uint, req *models.CreateRecipeRequest) (*models.RecipeResponse, error) {
	ingredients, err := json.Marshal(req.Ingredients)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:     authorID,
		Title:        req.Title,
		Description:  req.Description,
		CuisineType:  req.CuisineType,
		Ingredients:  string(ingredients),
		Instructions: req.Instructions,
		PrepMinutes:  req.PrepMinutes,
		CookMinutes:  req.CookMinutes,
		Servings:     req.Servings,
		Published:    req.Published,
	}

	if err := s.db.Create(&recipe).Error; err != nil {
		return nil, err
	}

	resp := toRecipeResponse(&recipe)
	return &resp, nil
}

// UpdateRecipe applies a partial update. Only the owning account may update.
func (s *RecipeService) UpdateRecipe(id, authorID uint, req *models.UpdateRecipeRequest) (*models.RecipeResponse, error) {
	var recipe models.Recipe
	result := s.db.First(&recipe, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, result.Error
	}

	if recipe.AuthorID != authorID {
		return nil, ErrNotRecipeOwner
	}

	if req.Title != nil {
		recipe.Title = *req.Title
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}
	if req.CuisineType != nil {
		recipe.CuisineType = *req.CuisineType
	}
	if req.Ingredients != nil {
		ingredients, err := json.Marshal(req.Ingredients)
		if err != nil {
			return nil, err
		}
		recipe.Ingredients = string(ingredients)
	}
	if req.Instructions != nil {
		recipe.Instructions = *req.Instructions
	}
	if req.PrepMinutes != nil {
		recipe.PrepMinutes = *req.PrepMinutes
	}
	if req.CookMinutes != nil {
		recipe.CookMinutes = *req.CookMinutes
	}
	if req.Servings != nil {
		recipe.Servings = *req.Servings
	}
	if req.Published != nil {
		recipe.Published = *req.Published
	}

	if err := s.db.Save(&recipe).Error; err != nil {
		return nil, err
	}

	resp := toRecipeResponse(&recipe)
	return &resp, nil
}

// DeleteRecipe removes a recipe. Admins may delete any recipe.
func (s *RecipeService) DeleteRecipe(id, authorID uint, isAdmin bool) error {
	var recipe models.Recipe
	result := s.db.First(&recipe, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		return result.Error
	}

	if !isAdmin && recipe.AuthorID != authorID {
		return ErrNotRecipeOwner
	}

	return s.db.Delete(&recipe).Error
}

// Nutrition computes the calorie summary for a recipe from its ingredients
func (s *RecipeService) Nutrition(id uint) (*models.NutritionSummary, error) {
	var recipe models.Recipe
	result := s.db.First(&recipe, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, result.Error
	}

	ingredients := parseIngredients(recipe.Ingredients)

	var total float64
	for _, ing := range ingredients {
		total += ing.Calories
	}

	perServing := total
	if recipe.Servings > 1 {
		perServing = total / float64(recipe.Servings)
	}

	return &models.NutritionSummary{
		RecipeID:           recipe.ID,
		TotalCalories:      total,
		CaloriesPerServing: perServing,
		IngredientCount:    len(ingredients),
	}, nil
}

func toRecipeResponse(r *models.Recipe) models.RecipeResponse {
	return models.RecipeResponse{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Title:        r.Title,
		Description:  r.Description,
		CuisineType:  r.CuisineType,
		Ingredients:  parseIngredients(r.Ingredients),
		Instructions: r.Instructions,
		PrepMinutes:  r.PrepMinutes,
		CookMinutes:  r.CookMinutes,
		Servings:     r.Servings,
		Published:    r.Published,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func parseIngredients(raw string) []models.Ingredient {
	if raw == "" {
		return []models.Ingredient{}
	}
	var ingredients []models.Ingredient
	if err := json.Unmarshal([]byte(raw), &ingredients); err != nil {
		return []models.Ingredient{}
	}
	return ingredients
}
