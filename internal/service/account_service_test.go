package service

import (
	"context"
	"errors"
	"fitlook/internal/auth"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	sqlrepo "fitlook/internal/model/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAccountService(t *testing.T) (*AccountService, *sqlrepo.GormRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.DbUser{},
		&entity.DbProfile{},
		&entity.DbGarment{},
		&entity.DbCustomer{},
		&entity.DbTryonHistory{},
		&entity.DbSystemSetting{},
	))
	repo := sqlrepo.NewGormRepository(db)
	return NewAccountService(repo, 50), repo
}

func TestEnsureProfileProvisionsShop(t *testing.T) {
	svc, repo := newAccountService(t)
	ctx := context.Background()

	profile, err := svc.EnsureProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ProfileRoleShop, profile.Role)
	assert.Equal(t, 50, profile.Allowance(0))
	assert.Equal(t, entity.PlanTypeFreeTrial, profile.PlanType)
	assert.Equal(t, entity.DefaultShopName, profile.ShopName)

	tries := 5
	require.NoError(t, repo.UpdateProfile(ctx, "user-1", entity.ProfileUpdates{FreeTries: &tries}))
	again, err := svc.EnsureProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Allowance(50))
}

func TestCreateShop(t *testing.T) {
	svc, repo := newAccountService(t)
	ctx := context.Background()
	tries := 20

	shop, err := svc.CreateShop(ctx, entity.ShopCreateRequest{
		Email:     "Owner@Boutique.test",
		Password:  "s3cret-pass",
		FullName:  "Meera",
		ShopName:  "Meera Couture",
		FreeTries: &tries,
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@boutique.test", shop.Email)
	assert.Equal(t, "Meera Couture", shop.Profile.ShopName)

	user, err := repo.GetUserByEmail(ctx, "owner@boutique.test")
	require.NoError(t, err)
	assert.NoError(t, auth.VerifyPassword(user.PasswordHash, "s3cret-pass"))

	profile, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, profile.Allowance(50))
	assert.Equal(t, entity.ProfileRoleShop, profile.Role)

	_, err = svc.CreateShop(ctx, entity.ShopCreateRequest{Email: "owner@boutique.test", Password: "another-pass", ShopName: "Dup"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	negative := -1
	_, err = svc.CreateShop(ctx, entity.ShopCreateRequest{Email: "n@b.test", Password: "another-pass", ShopName: "N", FreeTries: &negative})
	assert.Error(t, err)
}

func TestUpdateShop(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, "user-1")
	require.NoError(t, err)

	name := "  Royal Threads "
	tries := 75
	profile, err := svc.UpdateShop(ctx, "user-1", entity.ShopUpdateRequest{ShopName: &name, FreeTries: &tries})
	require.NoError(t, err)
	assert.Equal(t, "Royal Threads", profile.ShopName)
	assert.Equal(t, 75, profile.Allowance(50))

	_, err = svc.UpdateShop(ctx, "missing", entity.ShopUpdateRequest{ShopName: &name})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOverview(t *testing.T) {
	svc, repo := newAccountService(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	one := 1
	busy, err := svc.CreateShop(ctx, entity.ShopCreateRequest{Email: "busy@b.test", Password: "password1", ShopName: "Busy", FreeTries: &one})
	require.NoError(t, err)
	quiet, err := svc.CreateShop(ctx, entity.ShopCreateRequest{Email: "quiet@b.test", Password: "password1", ShopName: "Quiet"})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, "admin@b.test", "password1", &entity.DbProfile{Role: entity.ProfileRoleAdmin})
	require.NoError(t, err)

	records := []entity.DbTryonHistory{
		{UserID: busy.Profile.UserID, OutputImageURL: "a", CreatedAt: now.Add(-48 * time.Hour)},
		{UserID: busy.Profile.UserID, OutputImageURL: "b", CreatedAt: now.Add(-time.Hour)},
		{UserID: quiet.Profile.UserID, OutputImageURL: "c", CreatedAt: now.Add(-30 * time.Minute)},
	}
	for i := range records {
		require.NoError(t, repo.CreateHistory(ctx, &records[i]))
	}

	overview, err := svc.Overview(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalShops)
	assert.Equal(t, int64(3), overview.TotalImages)
	assert.Equal(t, int64(2), overview.TodayImages)
	assert.Equal(t, 1, overview.HighUsageShops)
	require.Len(t, overview.Shops, 2)
	assert.Equal(t, "busy@b.test", overview.Shops[0].Email)
	assert.Equal(t, int64(2), overview.Shops[0].TotalGenerations)
	require.NotNil(t, overview.Shops[0].LastActivity)
	assert.Equal(t, int64(1), overview.Shops[1].TotalGenerations)

	require.Len(t, overview.Weekly, 7)
	assert.Equal(t, "2025-06-04", overview.Weekly[0].Date)
	assert.Equal(t, entity.DailyCount{Date: "2025-06-08", Count: 1}, overview.Weekly[4])
	assert.Equal(t, entity.DailyCount{Date: "2025-06-10", Count: 2}, overview.Weekly[6])

	filtered, err := svc.Overview(ctx, "qui")
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.TotalShops, "汇总不受搜索影响")
	require.Len(t, filtered.Shops, 1)
	assert.Equal(t, "quiet@b.test", filtered.Shops[0].Email)
}

type failingProfileRepo struct {
	*sqlrepo.GormRepository
}

func (failingProfileRepo) UpsertProfile(context.Context, *entity.DbProfile) error {
	return errors.New("profiles table unavailable")
}

func TestCreateAccountRollsBackUserWhenProfileFails(t *testing.T) {
	_, repo := newAccountService(t)
	svc := NewAccountService(failingProfileRepo{repo}, 50)
	ctx := context.Background()

	_, err := svc.CreateShop(ctx, entity.ShopCreateRequest{Email: "orphan@b.test", Password: "password1"})
	require.Error(t, err)

	_, err = repo.GetUserByEmail(ctx, "orphan@b.test")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSystemPromptFallback(t *testing.T) {
	svc, repo := newAccountService(t)
	ctx := context.Background()

	assert.Equal(t, llm.DefaultSystemPrompt, svc.SystemPrompt(ctx))

	require.NoError(t, repo.UpsertSetting(ctx, &entity.DbSystemSetting{Key: entity.SettingKeySystemPrompt, Value: "   "}))
	assert.Equal(t, llm.DefaultSystemPrompt, svc.SystemPrompt(ctx))

	require.NoError(t, repo.UpsertSetting(ctx, &entity.DbSystemSetting{Key: entity.SettingKeySystemPrompt, Value: "Keep turbans intact."}))
	assert.Equal(t, "Keep turbans intact.", svc.SystemPrompt(ctx))
}
