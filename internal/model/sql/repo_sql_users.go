package sql

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fmt"
	"strings"
)

// 登录邮箱统一小写存储，查询时同样归一化
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormRepository) CreateUser(ctx context.Context, user *entity.DbUser) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if user == nil {
		return errors.New("user is nil")
	}
	if user.ID == "" {
		user.ID = entity.NewID()
	}
	user.Email = normalizeEmail(user.Email)
	if user.Email == "" {
		return errors.New("user email is empty")
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByEmail 按邮箱查找登录账户，不区分大小写
func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is empty")
	}
	return r.firstUser(ctx, "LOWER(email) = ?", email)
}

func (r *GormRepository) GetUserByID(ctx context.Context, id string) (*entity.DbUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("invalid user id")
	}
	return r.firstUser(ctx, "id = ?", id)
}

func (r *GormRepository) firstUser(ctx context.Context, cond string, arg string) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser 删除登录账户，用于开通资料失败时回滚
func (r *GormRepository) DeleteUser(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("invalid user id")
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.DbUser{}).Error
}

// CountUsers 首个注册用户成为管理员时使用
func (r *GormRepository) CountUsers(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.DbUser{}).Count(&count).Error
	return count, err
}
