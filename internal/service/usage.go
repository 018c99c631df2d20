package service

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// weeklyWindowDays 用量面板展示的天数
const weeklyWindowDays = 7

// Usage 由历史记录数推导的用量
type Usage struct {
	FreeRemaining  int64
	BillableUnits  int64
	BillableAmount int64
}

// ComputeUsage 计算剩余免费次数与超额计费，纯函数。
func ComputeUsage(allowance int, total int64, unitRate int) Usage {
	if allowance < 0 {
		allowance = 0
	}
	if total < 0 {
		total = 0
	}
	limit := int64(allowance)
	usage := Usage{}
	if total < limit {
		usage.FreeRemaining = limit - total
	}
	if total > limit {
		usage.BillableUnits = total - limit
	}
	usage.BillableAmount = usage.BillableUnits * int64(unitRate)
	return usage
}

// DailySeries 把时间戳按 UTC 自然日分桶，返回截止 now 的 days 天，旧的在前，无数据的日期补 0。
func DailySeries(times []time.Time, days int, now time.Time) []entity.DailyCount {
	if days <= 0 {
		return []entity.DailyCount{}
	}
	today := startOfDayUTC(now)
	first := today.AddDate(0, 0, -(days - 1))

	series := make([]entity.DailyCount, days)
	for i := range series {
		series[i].Date = first.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, ts := range times {
		day := startOfDayUTC(ts)
		if day.Before(first) || day.After(today) {
			continue
		}
		idx := int(day.Sub(first).Hours() / 24)
		series[idx].Count++
	}
	return series
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UsageStore 用量统计需要的仓库能力
type UsageStore interface {
	GetProfile(ctx context.Context, userID string) (*entity.DbProfile, error)
	CountHistory(ctx context.Context, userID string, since time.Time) (int64, error)
	ListHistoryTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// UsageService 店铺用量面板
type UsageService struct {
	store            UsageStore
	defaultAllowance int
	unitRate         int
	now              func() time.Time
}

func NewUsageService(store UsageStore, defaultAllowance, unitRate int) *UsageService {
	return &UsageService{
		store:            store,
		defaultAllowance: defaultAllowance,
		unitRate:         unitRate,
		now:              time.Now,
	}
}

// Summary 每次按当前历史记录数重新计算
func (s *UsageService) Summary(ctx context.Context, shopID string) (*entity.UsageSummary, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	allowance := s.defaultAllowance
	profile, err := s.store.GetProfile(ctx, shopID)
	switch {
	case err == nil:
		allowance = profile.Allowance(s.defaultAllowance)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	total, err := s.store.CountHistory(ctx, shopID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	now := s.now().UTC()
	since := startOfDayUTC(now).AddDate(0, 0, -(weeklyWindowDays - 1))
	times, err := s.store.ListHistoryTimes(ctx, shopID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly activity: %w", err)
	}

	usage := ComputeUsage(allowance, total, s.unitRate)
	return &entity.UsageSummary{
		Allowance:        allowance,
		TotalGenerations: total,
		FreeRemaining:    usage.FreeRemaining,
		BillableUnits:    usage.BillableUnits,
		BillableAmount:   usage.BillableAmount,
		UnitRate:         s.unitRate,
		Weekly:           DailySeries(times, weeklyWindowDays, now),
	}, nil
}
