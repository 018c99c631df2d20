package sql

import (
	"context"
	"fitlook/internal/entity"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateGarment inserts a catalog garment.
func (r *GormRepository) CreateGarment(ctx context.Context, garment *entity.DbGarment) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if garment == nil {
		return fmt.Errorf("garment is nil")
	}
	if garment.ID == "" {
		garment.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(garment).Error
}

// UpdateGarment updates a garment owned by userID.
func (r *GormRepository) UpdateGarment(ctx context.Context, userID, id string, updates entity.GarmentUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if updates.IsEmpty() {
		return nil
	}
	result := r.ownedScope(ctx, &entity.DbGarment{}, userID, id).Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteGarment removes a garment owned by userID.
func (r *GormRepository) DeleteGarment(ctx context.Context, userID, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	result := r.ownedScope(ctx, &entity.DbGarment{}, userID, id).Delete(&entity.DbGarment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetGarment loads a garment owned by userID.
func (r *GormRepository) GetGarment(ctx context.Context, userID, id string) (*entity.DbGarment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var garment entity.DbGarment
	if err := r.ownedScope(ctx, &entity.DbGarment{}, userID, id).First(&garment).Error; err != nil {
		return nil, err
	}
	return &garment, nil
}

// ListGarments lists garments of a shop, newest first.
func (r *GormRepository) ListGarments(ctx context.Context, query entity.GarmentQuery) ([]entity.DbGarment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(query.UserID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	tx := r.db.WithContext(ctx).Model(&entity.DbGarment{}).Where("user_id = ?", query.UserID)
	if category := strings.TrimSpace(query.Category); category != "" {
		tx = tx.Where("category = ?", category)
	}
	if pattern, ok := likePattern(query.Search); ok {
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(category) LIKE ?)", pattern, pattern)
	}
	var garments []entity.DbGarment
	if err := tx.Order("created_at DESC, id DESC").Find(&garments).Error; err != nil {
		return nil, err
	}
	return garments, nil
}

// CreateCustomer inserts a customer.
func (r *GormRepository) CreateCustomer(ctx context.Context, customer *entity.DbCustomer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if customer == nil {
		return fmt.Errorf("customer is nil")
	}
	if customer.ID == "" {
		customer.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

// UpdateCustomer updates a customer owned by userID.
func (r *GormRepository) UpdateCustomer(ctx context.Context, userID, id string, updates entity.CustomerUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if updates.IsEmpty() {
		return nil
	}
	result := r.ownedScope(ctx, &entity.DbCustomer{}, userID, id).Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCustomer removes a customer owned by userID.
func (r *GormRepository) DeleteCustomer(ctx context.Context, userID, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	result := r.ownedScope(ctx, &entity.DbCustomer{}, userID, id).Delete(&entity.DbCustomer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetCustomer loads a customer owned by userID.
func (r *GormRepository) GetCustomer(ctx context.Context, userID, id string) (*entity.DbCustomer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var customer entity.DbCustomer
	if err := r.ownedScope(ctx, &entity.DbCustomer{}, userID, id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListCustomers lists customers of a shop, newest first.
func (r *GormRepository) ListCustomers(ctx context.Context, userID string) ([]entity.DbCustomer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	var customers []entity.DbCustomer
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
