package model

import (
	"context"
	"errors"
	"fitlook/internal/auth"
	"fitlook/internal/config"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedDefaults 写入启动所需的默认数据：管理员账户（仅在没有任何用户时）与系统提示词。
func SeedDefaults(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}
	if err := seedAdmin(ctx, repo, cfg); err != nil {
		return err
	}
	return seedSystemPrompt(ctx, repo)
}

func seedAdmin(ctx context.Context, repo Repository, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	password := strings.TrimSpace(cfg.AdminPassword)
	if email == "" || password == "" {
		return nil
	}

	count, err := repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user := &entity.DbUser{
		ID:           entity.NewID(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return err
	}

	profile := &entity.DbProfile{
		UserID:   user.ID,
		FullName: "Administrator",
		ShopName: entity.DefaultShopName,
		Role:     entity.ProfileRoleAdmin,
		PlanType: entity.PlanTypeFreeTrial,
	}
	if err := repo.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	logrus.WithField("email", email).Info("seeded admin account")
	return nil
}

func seedSystemPrompt(ctx context.Context, repo Repository) error {
	_, err := repo.GetSetting(ctx, entity.SettingKeySystemPrompt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.UpsertSetting(ctx, &entity.DbSystemSetting{
			Key:         entity.SettingKeySystemPrompt,
			Value:       llm.DefaultSystemPrompt,
			Description: "System instruction prepended to every try-on request",
		})
	default:
		return err
	}
}
