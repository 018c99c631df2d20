package storage

import (
	"bytes"
	"context"
	"errors"
	"fitlook/internal/config"
	"fmt"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossStorage struct {
	client     *oss.Client
	endpoint   *url.URL
	publicBase string
}

func NewOSSStorage(cfg config.Config) (Backend, error) {
	endpoint := normalizeEndpoint(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("storage: parse OSS endpoint: %w", err)
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}

	return &ossStorage{
		client:     client,
		endpoint:   parsed,
		publicBase: remotePublicBase(cfg.StoragePublicBaseURL),
	}, nil
}

func (s *ossStorage) Put(ctx context.Context, bucketName, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	bucket, err := s.client.Bucket(bucketName)
	if err != nil {
		return fmt.Errorf("open OSS bucket: %w", err)
	}

	options := []oss.Option{oss.WithContext(ctx)}
	if ct := strings.TrimSpace(contentType); ct != "" {
		options = append(options, oss.ContentType(ct))
	}

	if err := bucket.PutObject(key, bytes.NewReader(data), options...); err != nil {
		if ossErrorCode(err) == "NoSuchBucket" {
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		}
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *ossStorage) CreateBucket(ctx context.Context, bucketName string) error {
	err := s.client.CreateBucket(bucketName, oss.ACL(oss.ACLPublicRead), oss.WithContext(ctx))
	if err == nil {
		return nil
	}
	switch ossErrorCode(err) {
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return ErrBucketExists
	}
	return fmt.Errorf("create bucket: %w", err)
}

func (s *ossStorage) PublicURL(bucketName, key string) string {
	if s.publicBase != "" {
		return joinURL(s.publicBase, key)
	}
	return joinURL(fmt.Sprintf("%s://%s.%s", s.endpoint.Scheme, bucketName, s.endpoint.Host), key)
}

func ossErrorCode(err error) string {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

var _ Backend = (*ossStorage)(nil)
