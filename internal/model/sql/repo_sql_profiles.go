package sql

import (
	"context"
	"fitlook/internal/entity"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProfile loads the shop profile of a user.
func (r *GormRepository) GetProfile(ctx context.Context, userID string) (*entity.DbProfile, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	var profile entity.DbProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile inserts the profile or overwrites every column of an existing one.
func (r *GormRepository) UpsertProfile(ctx context.Context, profile *entity.DbProfile) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if profile == nil || strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("invalid profile")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "shop_name", "role", "free_tries", "plan_type", "updated_at"}),
		}).
		Create(profile).Error
}

// UpdateProfile applies partial updates to a profile.
func (r *GormRepository) UpdateProfile(ctx context.Context, userID string, updates entity.ProfileUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("invalid user id")
	}
	if updates.IsEmpty() {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&entity.DbProfile{}).Where("user_id = ?", userID).Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProfiles lists profiles newest first, optionally filtered by role and name.
func (r *GormRepository) ListProfiles(ctx context.Context, params entity.ProfileQuery) ([]entity.DbProfile, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	query := r.db.WithContext(ctx).Model(&entity.DbProfile{})
	if role := strings.TrimSpace(params.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if pattern, ok := likePattern(params.Search); ok {
		query = query.Where("(LOWER(full_name) LIKE ? OR LOWER(shop_name) LIKE ?)", pattern, pattern)
	}
	var profiles []entity.DbProfile
	if err := query.Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
