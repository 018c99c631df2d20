package service

import (
	"context"
	"errors"
	"fitlook/internal/auth"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"fitlook/internal/model"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrEmailTaken 邮箱已被注册
var ErrEmailTaken = errors.New("email already registered")

// AccountService 店铺资料开通、管理后台与系统设置
type AccountService struct {
	repo         model.Repository
	defaultTries int
	now          func() time.Time
}

func NewAccountService(repo model.Repository, defaultTries int) *AccountService {
	return &AccountService{repo: repo, defaultTries: defaultTries, now: time.Now}
}

// DefaultTries 新店铺的免费额度
func (s *AccountService) DefaultTries() int {
	return s.defaultTries
}

// EnsureProfile 返回用户资料，首次访问时自动开通店铺资料。
func (s *AccountService) EnsureProfile(ctx context.Context, userID string) (*entity.DbProfile, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile = entity.NewShopProfile(userID, s.defaultTries)
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}
	logrus.WithField("user_id", userID).Info("provisioned shop profile")
	return profile, nil
}

// CreateAccount 创建登录账户与对应资料
func (s *AccountService) CreateAccount(ctx context.Context, email, password string, profile *entity.DbProfile) (*entity.DbUser, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &entity.DbUser{
		ID:           entity.NewID(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	profile.UserID = user.ID
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		// 没有资料的登录账户无法使用，回滚刚创建的用户
		if delErr := s.repo.DeleteUser(ctx, user.ID); delErr != nil {
			logrus.WithError(delErr).WithField("user_id", user.ID).Error("failed to roll back user without profile")
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return user, nil
}

// CreateShop 管理员创建店铺
func (s *AccountService) CreateShop(ctx context.Context, req entity.ShopCreateRequest) (*entity.ShopOverview, error) {
	tries := s.defaultTries
	if req.FreeTries != nil {
		tries = *req.FreeTries
	}
	if tries < 0 {
		return nil, fmt.Errorf("free tries must not be negative")
	}
	profile := entity.NewShopProfile("", tries)
	profile.FullName = strings.TrimSpace(req.FullName)
	if name := strings.TrimSpace(req.ShopName); name != "" {
		profile.ShopName = name
	}

	user, err := s.CreateAccount(ctx, req.Email, req.Password, profile)
	if err != nil {
		return nil, err
	}
	return &entity.ShopOverview{Profile: *profile, Email: user.Email}, nil
}

// UpdateShop 管理员更新店铺资料
func (s *AccountService) UpdateShop(ctx context.Context, userID string, req entity.ShopUpdateRequest) (*entity.DbProfile, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if req.FreeTries != nil && *req.FreeTries < 0 {
		return nil, fmt.Errorf("free tries must not be negative")
	}
	updates := entity.ProfileUpdates{
		FullName:  trimmedPtr(req.FullName),
		ShopName:  trimmedPtr(req.ShopName),
		FreeTries: req.FreeTries,
		PlanType:  trimmedPtr(req.PlanType),
	}
	if !updates.IsEmpty() {
		if err := s.repo.UpdateProfile(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetProfile(ctx, userID)
}

// Overview 管理后台统计：店铺数、总生成数、今日生成数、近 7 天趋势、超出免费额度的店铺数与每个店铺的明细。
// search 非空时只过滤明细列表，汇总数字始终覆盖全部店铺。
func (s *AccountService) Overview(ctx context.Context, search string) (*entity.AdminOverview, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	shops, err := s.repo.ListProfiles(ctx, entity.ProfileQuery{Role: entity.ProfileRoleShop})
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	listed := shops
	if strings.TrimSpace(search) != "" {
		listed, err = s.repo.ListProfiles(ctx, entity.ProfileQuery{Role: entity.ProfileRoleShop, Search: search})
		if err != nil {
			return nil, fmt.Errorf("failed to search shops: %w", err)
		}
	}

	stats, err := s.repo.HistoryStatsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history: %w", err)
	}
	now := s.now()
	totalImages, err := s.repo.CountHistory(ctx, "", time.Time{})
	if err != nil {
		return nil, err
	}
	todayImages, err := s.repo.CountHistory(ctx, "", startOfDayUTC(now))
	if err != nil {
		return nil, err
	}
	weekStart := startOfDayUTC(now).AddDate(0, 0, -(weeklyWindowDays - 1))
	times, err := s.repo.ListHistoryTimes(ctx, "", weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly activity: %w", err)
	}

	byUser := make(map[string]entity.HistoryUserStat, len(stats))
	for _, stat := range stats {
		byUser[stat.UserID] = stat
	}

	overview := &entity.AdminOverview{
		TotalShops:  len(shops),
		TotalImages: totalImages,
		TodayImages: todayImages,
		Weekly:      DailySeries(times, weeklyWindowDays, now),
		Shops:       make([]entity.ShopOverview, 0, len(listed)),
	}
	for i := range shops {
		if byUser[shops[i].UserID].Total > int64(shops[i].Allowance(s.defaultTries)) {
			overview.HighUsageShops++
		}
	}
	for _, profile := range listed {
		row := entity.ShopOverview{Profile: profile}
		if stat, ok := byUser[profile.UserID]; ok {
			row.TotalGenerations = stat.Total
			row.LastActivity = stat.LastActivity
		}
		if user, err := s.repo.GetUserByID(ctx, profile.UserID); err == nil {
			row.Email = user.Email
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).WithField("user_id", profile.UserID).Warn("failed to load shop login")
		}
		overview.Shops = append(overview.Shops, row)
	}
	sort.SliceStable(overview.Shops, func(i, j int) bool {
		return overview.Shops[i].TotalGenerations > overview.Shops[j].TotalGenerations
	})
	return overview, nil
}

// SystemPrompt 读取管理员配置的系统提示词，缺失或读取失败时使用默认值。
func (s *AccountService) SystemPrompt(ctx context.Context) string {
	if s == nil || s.repo == nil {
		return llm.DefaultSystemPrompt
	}
	setting, err := s.repo.GetSetting(ctx, entity.SettingKeySystemPrompt)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Warn("failed to load system prompt, using default")
		}
		return llm.DefaultSystemPrompt
	}
	if strings.TrimSpace(setting.Value) == "" {
		return llm.DefaultSystemPrompt
	}
	return setting.Value
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
