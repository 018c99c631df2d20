package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUploadFailed 上传未能得到可用的公开 URL。
var ErrUploadFailed = errors.New("storage: upload failed")

// Uploader 资源上传适配器：写入固定的逻辑存储桶，桶不存在时创建一次并重试一次。
type Uploader struct {
	backend Backend
	bucket  string
	root    string
}

// NewUploader 创建上传适配器。root 为对象键的顶层目录（如 fitlook）。
func NewUploader(backend Backend, bucket, root string) (*Uploader, error) {
	if backend == nil {
		return nil, errors.New("storage: backend is nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing bucket name")
	}
	return &Uploader{backend: backend, bucket: bucket, root: trimPrefix(root)}, nil
}

// Upload 保存数据并返回公开 URL。失败时返回包装了 ErrUploadFailed 的错误。
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType, folder string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrUploadFailed)
	}
	key := buildObjectKey(u.root, folder, contentType)
	logger := logrus.WithFields(logrus.Fields{
		"bucket": u.bucket,
		"key":    key,
		"size":   len(data),
	})

	err := u.backend.Put(ctx, u.bucket, key, data, contentType)
	if errors.Is(err, ErrBucketNotFound) {
		logger.Info("bucket not found, creating before retry")
		if createErr := u.backend.CreateBucket(ctx, u.bucket); createErr != nil && !errors.Is(createErr, ErrBucketExists) {
			// 可能已被其他进程创建或权限不足，仍然重试一次
			logger.WithError(createErr).Warn("failed to create bucket")
		}
		err = u.backend.Put(ctx, u.bucket, key, data, contentType)
	}
	if err != nil {
		logger.WithError(err).Error("failed to upload object")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return u.backend.PublicURL(u.bucket, key), nil
}
