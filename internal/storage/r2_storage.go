package storage

import (
	"errors"
	"fitlook/internal/config"
	"fmt"
	"strings"
)

const r2DefaultRegion = "auto"

// NewR2Storage Cloudflare R2 走 S3 兼容协议，固定使用 path-style。
func NewR2Storage(cfg config.Config) (Backend, error) {
	keyID := strings.TrimSpace(cfg.StorageR2AccessKeyID)
	secret := strings.TrimSpace(cfg.StorageR2SecretAccessKey)
	if keyID == "" || secret == "" {
		return nil, errors.New("storage: missing R2 credentials")
	}

	endpoint, err := r2Endpoint(cfg)
	if err != nil {
		return nil, err
	}
	region := firstNonEmpty(cfg.StorageR2Region, r2DefaultRegion)

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     keyID,
		SecretAccessKey: secret,
		ForcePathStyle:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create R2 client: %w", err)
	}
	return &remoteS3Storage{
		client:     client,
		region:     region,
		endpoint:   endpoint,
		publicBase: remotePublicBase(cfg.StoragePublicBaseURL),
		pathStyle:  true,
	}, nil
}

// r2Endpoint 优先使用显式 endpoint，否则由账户 ID 推导
func r2Endpoint(cfg config.Config) (string, error) {
	if endpoint := normalizeEndpoint(cfg.StorageR2Endpoint); endpoint != "" {
		return endpoint, nil
	}
	accountID := strings.TrimSpace(cfg.StorageR2AccountID)
	if accountID == "" {
		return "", errors.New("storage: missing R2 endpoint or account id")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID), nil
}
