package sql

import (
	"context"
	"fitlook/internal/entity"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GormRepository 基于 GORM 的仓库实现，sqlite/mysql/postgres 共用。
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// ownedScope restricts a query to a single row owned by userID.
func (r *GormRepository) ownedScope(ctx context.Context, model interface{}, userID, id string) *gorm.DB {
	return r.db.WithContext(ctx).Model(model).Where("id = ? AND user_id = ?", strings.TrimSpace(id), strings.TrimSpace(userID))
}

// paginate applies normalized paging to query and returns the response metadata.
func paginate(query *gorm.DB, params entity.BaseParams, total int64) (*gorm.DB, *entity.Meta) {
	params.Normalize(defaultPageSize, maxPageSize)
	meta := &entity.Meta{
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	return query.Offset(params.Offset()).Limit(int(params.PageSize)), meta
}

// likePattern builds a lower-cased substring pattern, reporting false for a blank term.
func likePattern(term string) (string, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return "", false
	}
	return "%" + term + "%", true
}
