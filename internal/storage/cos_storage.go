package storage

import (
	"bytes"
	"context"
	"errors"
	"fitlook/internal/config"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// cosStorage 的存储桶由 BucketURL 决定，逻辑桶名只用于日志。
type cosStorage struct {
	client     *cos.Client
	bucketURL  string
	publicBase string
}

func NewCOSStorage(cfg config.Config) (Backend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.StorageCOSBucketURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	transport := &cos.AuthorizationTransport{
		SecretID:  secretID,
		SecretKey: secretKey,
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{Transport: transport})

	return &cosStorage{
		client:     client,
		bucketURL:  baseURL,
		publicBase: remotePublicBase(cfg.StoragePublicBaseURL),
	}, nil
}

func (s *cosStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}

	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{},
	}
	if ct := strings.TrimSpace(contentType); ct != "" {
		options.ObjectPutHeaderOptions.ContentType = ct
	}

	resp, err := s.client.Object.Put(ctx, key, bytes.NewReader(data), options)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if cosErrorCode(err) == "NoSuchBucket" {
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		}
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *cosStorage) CreateBucket(ctx context.Context, bucket string) error {
	resp, err := s.client.Bucket.Put(ctx, &cos.BucketPutOptions{XCosACL: "public-read"})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err == nil {
		return nil
	}
	switch cosErrorCode(err) {
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return ErrBucketExists
	}
	return fmt.Errorf("create bucket: %w", err)
}

func (s *cosStorage) PublicURL(bucket, key string) string {
	if s.publicBase != "" {
		return joinURL(s.publicBase, key)
	}
	return joinURL(s.bucketURL, key)
}

func cosErrorCode(err error) string {
	var cosErr *cos.ErrorResponse
	if errors.As(err, &cosErr) {
		return cosErr.Code
	}
	return ""
}

var _ Backend = (*cosStorage)(nil)
