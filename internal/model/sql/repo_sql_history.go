package sql

import (
	"context"
	"fitlook/internal/entity"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// CreateHistory inserts a try-on history record.
func (r *GormRepository) CreateHistory(ctx context.Context, record *entity.DbTryonHistory) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.ID == "" {
		record.ID = entity.NewID()
	}
	return r.db.WithContext(ctx).Omit("Customer").Create(record).Error
}

// ListHistory retrieves paginated history, newest first, with the customer preloaded.
func (r *GormRepository) ListHistory(ctx context.Context, params *entity.HistoryQuery) ([]entity.DbTryonHistory, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbTryonHistory{})
	var paging entity.BaseParams
	if params != nil {
		if trimmed := strings.TrimSpace(params.UserID); trimmed != "" {
			query = query.Where("user_id = ?", trimmed)
		}
		paging = params.BaseParams
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	paged, meta := paginate(query, paging, totalCount)
	var records []entity.DbTryonHistory
	if err := paged.Preload("Customer").Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, nil, err
	}
	return records, meta, nil
}

// GetHistory loads one history record.
func (r *GormRepository) GetHistory(ctx context.Context, id string) (*entity.DbTryonHistory, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("invalid history id")
	}
	var record entity.DbTryonHistory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return &record, nil
}

// DeleteHistory removes a history record by ID.
func (r *GormRepository) DeleteHistory(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid history id")
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.DbTryonHistory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountHistory counts history records, optionally scoped to a shop and a start time.
func (r *GormRepository) CountHistory(ctx context.Context, userID string, since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	query := r.historyScope(ctx, userID, since)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListHistoryTimes returns the creation timestamps of matching records, oldest first.
func (r *GormRepository) ListHistoryTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var times []time.Time
	if err := r.historyScope(ctx, userID, since).Order("created_at ASC").Pluck("created_at", &times).Error; err != nil {
		return nil, err
	}
	return times, nil
}

type historyStatRow struct {
	UserID string
	Total  int64
}

// HistoryStatsByUser aggregates generation totals and latest activity per shop.
func (r *GormRepository) HistoryStatsByUser(ctx context.Context) ([]entity.HistoryUserStat, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	var rows []historyStatRow
	if err := r.db.WithContext(ctx).
		Model(&entity.DbTryonHistory{}).
		Select("user_id, COUNT(*) AS total").
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make([]entity.HistoryUserStat, 0, len(rows))
	for _, row := range rows {
		// MAX(created_at) 在 sqlite 中返回字符串，逐个查询最新记录以保持时间类型一致
		var latest entity.DbTryonHistory
		err := r.db.WithContext(ctx).
			Select("created_at").
			Where("user_id = ?", row.UserID).
			Order("created_at DESC").
			First(&latest).Error
		stat := entity.HistoryUserStat{UserID: row.UserID, Total: row.Total}
		if err == nil {
			ts := latest.CreatedAt
			stat.LastActivity = &ts
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (r *GormRepository) historyScope(ctx context.Context, userID string, since time.Time) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.DbTryonHistory{})
	if trimmed := strings.TrimSpace(userID); trimmed != "" {
		query = query.Where("user_id = ?", trimmed)
	}
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	return query
}
