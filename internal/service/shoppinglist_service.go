package service

import (
	"encoding/json"
	"errors"

	"recipe-box/backend/internal/models"

	"gorm.io/gorm"
)

var ErrShoppingListNotFound = errors.New("shopping list not found")

// ShoppingListService handles shopping list storage. Every operation is
// scoped to the owning account.
type ShoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new shopping list service
func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// ListForAccount returns all shopping lists owned by accountID
func (s *ShoppingListService) ListForAccount(accountID uint) ([]models.ShoppingListResponse, error) {
	var lists []models.ShoppingList
	if err := s.db.Where("account_id = ?", accountID).Order("updated_at DESC").Find(&lists).Error; err != nil {
		return nil, err
	}

	responses := make([]models.ShoppingListResponse, 0, len(lists))
	for i := range lists {
		responses = append(responses, toShoppingListResponse(&lists[i]))
	}
	return responses, nil
}

// Get retrieves one shopping list owned by accountID
func (s *ShoppingListService) Get(id, accountID uint) (*models.ShoppingListResponse, error) {
	var list models.ShoppingList
	result := s.db.Where("id = ? AND account_id = ?", id, accountID).First(&list)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrShoppingListNotFound
		}
		return nil, result.Error
	}
	resp := toShoppingListResponse(&list)
	return &resp, nil
}

// Create stores a new shopping list for accountID
func (s *ShoppingListService) Create(accountID uint, req *models.CreateShoppingListRequest) (*models.ShoppingListResponse, error) {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, err
	}

	list := models.ShoppingList{
		AccountID: accountID,
		Name:      req.Name,
		Items:     string(items),
	}

	if err := s.db.Create(&list).Error; err != nil {
		return nil, err
	}

	resp := toShoppingListResponse(&list)
	return &resp, nil
}

// Update replaces a list's name or items
func (s *ShoppingListService) Update(id, accountID uint, req *models.UpdateShoppingListRequest) (*models.ShoppingListResponse, error) {
	var list models.ShoppingList
	result := s.db.Where("id = ? AND account_id = ?", id, accountID).First(&list)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrShoppingListNotFound
		}
		return nil, result.Error
	}

	if req.Name != nil {
		list.Name = *req.Name
	}
	if req.Items != nil {
		items, err := json.Marshal(req.Items)
		if err != nil {
			return nil, err
		}
		list.Items = string(items)
	}

	if err := s.db.Save(&list).Error; err != nil {
		return nil, err
	}

	resp := toShoppingListResponse(&list)
	return &resp, nil
}

// Delete removes a list owned by accountID
func (s *ShoppingListService) Delete(id, accountID uint) error {
	result := s.db.Where("id = ? AND account_id = ?", id, accountID).Delete(&models.ShoppingList{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShoppingListNotFound
	}
	return nil
}

func toShoppingListResponse(l *models.ShoppingList) models.ShoppingListResponse {
	items := []models.ShoppingItem{}
	if l.Items != "" {
		if err := json.Unmarshal([]byte(l.Items), &items); err != nil {
			items = []models.ShoppingItem{}
		}
	}

	return models.ShoppingListResponse{
		ID:        l.ID,
		AccountID: l.AccountID,
		Name:      l.Name,
		Items:     items,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
