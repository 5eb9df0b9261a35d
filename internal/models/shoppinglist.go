package models

import (
	"time"
)

// ShoppingList is a named collection of items owned by one account
type ShoppingList struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"index" json:"account_id"`
	Name      string    `json:"name"`
	Items     string    `gorm:"type:text" json:"-"` // JSON array of ShoppingItem
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShoppingItem is a single entry on a shopping list
type ShoppingItem struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Checked  bool    `json:"checked"`
}

// CreateShoppingListRequest is the request structure for creating a list
type CreateShoppingListRequest struct {
	Name  string         `json:"name" binding:"required"`
	Items []ShoppingItem `json:"items"`
}

// UpdateShoppingListRequest replaces a list's name or items
type UpdateShoppingListRequest struct {
	Name  *string        `json:"name,omitempty"`
	Items []ShoppingItem `json:"items,omitempty"`
}

// ShoppingListResponse is the response structure for shopping list data
type ShoppingListResponse struct {
	ID        uint           `json:"id"`
	AccountID uint           `json:"account_id"`
	Name      string         `json:"name"`
	Items     []ShoppingItem `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
