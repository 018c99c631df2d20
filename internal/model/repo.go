package model

import (
	"context"
	"fitlook/internal/entity"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound 所有仓库实现在记录不存在时返回该错误。
var ErrNotFound = gorm.ErrRecordNotFound

// Repository 定义数据库操作接口
type Repository interface {
	// 登录账户
	CreateUser(ctx context.Context, user *entity.DbUser) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id string) (*entity.DbUser, error)
	CountUsers(ctx context.Context) (int64, error)
	DeleteUser(ctx context.Context, id string) error

	// 店铺资料
	GetProfile(ctx context.Context, userID string) (*entity.DbProfile, error)
	UpsertProfile(ctx context.Context, profile *entity.DbProfile) error
	UpdateProfile(ctx context.Context, userID string, updates entity.ProfileUpdates) error
	ListProfiles(ctx context.Context, query entity.ProfileQuery) ([]entity.DbProfile, error)

	// 服装目录，列表按 created_at 倒序，Search 按名称或分类模糊匹配
	CreateGarment(ctx context.Context, garment *entity.DbGarment) error
	UpdateGarment(ctx context.Context, userID, id string, updates entity.GarmentUpdates) error
	DeleteGarment(ctx context.Context, userID, id string) error
	GetGarment(ctx context.Context, userID, id string) (*entity.DbGarment, error)
	ListGarments(ctx context.Context, query entity.GarmentQuery) ([]entity.DbGarment, error)

	// 顾客，列表按 created_at 倒序
	CreateCustomer(ctx context.Context, customer *entity.DbCustomer) error
	UpdateCustomer(ctx context.Context, userID, id string, updates entity.CustomerUpdates) error
	DeleteCustomer(ctx context.Context, userID, id string) error
	GetCustomer(ctx context.Context, userID, id string) (*entity.DbCustomer, error)
	ListCustomers(ctx context.Context, userID string) ([]entity.DbCustomer, error)

	// 试穿历史
	CreateHistory(ctx context.Context, record *entity.DbTryonHistory) error
	ListHistory(ctx context.Context, query *entity.HistoryQuery) ([]entity.DbTryonHistory, *entity.Meta, error)
	GetHistory(ctx context.Context, id string) (*entity.DbTryonHistory, error)
	DeleteHistory(ctx context.Context, id string) error
	// CountHistory 统计记录数；userID 为空时统计全部，since 为零值时不限时间。
	CountHistory(ctx context.Context, userID string, since time.Time) (int64, error)
	ListHistoryTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	HistoryStatsByUser(ctx context.Context) ([]entity.HistoryUserStat, error)

	// 系统设置
	GetSetting(ctx context.Context, key string) (*entity.DbSystemSetting, error)
	UpsertSetting(ctx context.Context, setting *entity.DbSystemSetting) error
}
