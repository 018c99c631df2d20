package storage

import (
	"context"
	"errors"
	"fitlook/internal/config"
	"fmt"
	"strings"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
	// TypeSupabase 表示 Supabase Storage。
	TypeSupabase = "supabase"
)

// MaxUploadBytes 单个文件大小上限。
const MaxUploadBytes = 10 << 20

// AllowedImageTypes 允许上传的图片类型。
var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

var (
	// ErrBucketNotFound 存储桶不存在，可通过创建后重试恢复。
	ErrBucketNotFound = errors.New("storage: bucket not found")
	// ErrBucketExists 创建存储桶时发现其已存在（可能是并发创建）。
	ErrBucketExists = errors.New("storage: bucket already exists")
)

// Backend 是对象存储后端的最小契约。
//
// Put 在桶不存在时必须返回包装了 ErrBucketNotFound 的错误；CreateBucket 在桶已存在时
// 返回 ErrBucketExists 或 nil。
type Backend interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	CreateBucket(ctx context.Context, bucket string) error
	PublicURL(bucket, key string) string
}

// LocalBaseDirProvider 由暴露可通过 HTTP 直接提供服务的本地目录的存储驱动实现。
type LocalBaseDirProvider interface {
	LocalBaseDir() string
}

// NewBackend 根据配置实例化存储后端。
func NewBackend(cfg config.Config) (Backend, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalStorage(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case TypeS3:
		return NewS3Storage(cfg)
	case TypeOSS:
		return NewOSSStorage(cfg)
	case TypeCOS:
		return NewCOSStorage(cfg)
	case TypeR2:
		return NewR2Storage(cfg)
	case TypeSupabase:
		return NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

// IsAllowedImageType 判断 content type 是否在允许列表中。
func IsAllowedImageType(contentType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(normalized, ";"); idx > 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	for _, allowed := range AllowedImageTypes {
		if normalized == allowed {
			return true
		}
	}
	return false
}
