package models

import (
	"time"
)

// Recipe represents a published recipe
type Recipe struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AuthorID     uint      `gorm:"index" json:"author_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CuisineType  string    `gorm:"index" json:"cuisine_type"`
	Ingredients  string    `gorm:"type:text" json:"-"` // JSON array of Ingredient
	Instructions string    `gorm:"type:text" json:"instructions"`
	PrepMinutes  int       `json:"prep_minutes"`
	CookMinutes  int       `json:"cook_minutes"`
	Servings     int       `json:"servings"`
	Published    bool      `gorm:"index" json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ingredient is a single line item of a recipe
type Ingredient struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories,omitempty"`
}

// CreateRecipeRequest is the request structure for creating a recipe
type CreateRecipeRequest struct {
	Title        string       `json:"title" binding:"required"`
	Description  string       `json:"description"`
	CuisineType  string       `json:"cuisine_type"`
	Ingredients  []Ingredient `json:"ingredients" binding:"required,min=1"`
	Instructions string       `json:"instructions" binding:"required"`
	PrepMinutes  int          `json:"prep_minutes"`
	CookMinutes  int          `json:"cook_minutes"`
	Servings     int          `json:"servings"`
	Published    bool         `json:"published"`
}

// UpdateRecipeRequest carries partial updates to a recipe
type UpdateRecipeRequest struct {
	Title        *string      `json:"title,omitempty"`
	Description  *string      `json:"description,omitempty"`
	CuisineType  *string      `json:"cuisine_type,omitempty"`
	Ingredients  []Ingredient `json:"ingredients,omitempty"`
	Instructions *string      `json:"instructions,omitempty"`
	PrepMinutes  *int         `json:"prep_minutes,omitempty"`
	CookMinutes  *int         `json:"cook_minutes,omitempty"`
	Servings     *int         `json:"servings,omitempty"`
	Published    *bool        `json:"published,omitempty"`
}

// RecipeResponse is the response structure for recipe data
type RecipeResponse struct {
	ID           uint         `json:"id"`
	AuthorID     uint         `json:"author_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	CuisineType  string       `json:"cuisine_type"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions string       `json:"instructions"`
	PrepMinutes  int          `json:"prep_minutes"`
	CookMinutes  int          `json:"cook_minutes"`
	Servings     int          `json:"servings"`
	Published    bool         `json:"published"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NutritionSummary is the computed nutrition breakdown of a recipe
type NutritionSummary struct {
	RecipeID           uint    `json:"recipe_id"`
	TotalCalories      float64 `json:"total_calories"`
	CaloriesPerServing float64 `json:"calories_per_serving"`
	IngredientCount    int     `json:"ingredient_count"`
}
