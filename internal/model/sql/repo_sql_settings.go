package sql

import (
	"context"
	"fitlook/internal/entity"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// GetSetting loads a system setting by key.
func (r *GormRepository) GetSetting(ctx context.Context, key string) (*entity.DbSystemSetting, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("setting key is empty")
	}
	var setting entity.DbSystemSetting
	if err := r.db.WithContext(ctx).Where(&entity.DbSystemSetting{Key: key}).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// UpsertSetting writes a system setting, replacing value and description.
func (r *GormRepository) UpsertSetting(ctx context.Context, setting *entity.DbSystemSetting) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if setting == nil || strings.TrimSpace(setting.Key) == "" {
		return fmt.Errorf("invalid setting")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).
		Create(setting).Error
}
