package storage

import (
	"bytes"
	"context"
	"errors"
	"fitlook/internal/config"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool
}

type remoteS3Storage struct {
	client     *s3.Client
	region     string
	endpoint   string
	publicBase string
	pathStyle  bool
}

func (s *remoteS3Storage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if ct := strings.TrimSpace(contentType); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isS3NoSuchBucket(err) {
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		}
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *remoteS3Storage) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != "us-east-1" && s.region != "auto" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return ErrBucketExists
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *remoteS3Storage) PublicURL(bucket, key string) string {
	switch {
	case s.publicBase != "":
		return joinURL(s.publicBase, key)
	case s.endpoint != "" && s.pathStyle:
		return joinURL(s.endpoint, bucket, key)
	case s.endpoint != "":
		return joinURL(strings.Replace(s.endpoint, "://", "://"+bucket+".", 1), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, strings.TrimLeft(key, "/"))
	}
}

var _ Backend = (*remoteS3Storage)(nil)

func isS3NoSuchBucket(err error) bool {
	if err == nil {
		return false
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if strings.EqualFold(apiErr.ErrorCode(), "NoSuchBucket") {
			return true
		}
	}
	return false
}

func NewS3Storage(cfg config.Config) (Backend, error) {
	region := strings.TrimSpace(cfg.StorageS3Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	endpoint := normalizeEndpoint(cfg.StorageS3Endpoint)

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        endpoint,
		AccessKeyID:     cfg.StorageS3AccessKeyID,
		SecretAccessKey: cfg.StorageS3SecretAccessKey,
		SessionToken:    cfg.StorageS3SessionToken,
		ForcePathStyle:  cfg.StorageS3ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create S3 client: %w", err)
	}

	return &remoteS3Storage{
		client:     client,
		region:     region,
		endpoint:   endpoint,
		publicBase: remotePublicBase(cfg.StoragePublicBaseURL),
		pathStyle:  cfg.StorageS3ForcePathStyle,
	}, nil
}

// remotePublicBase 只有绝对地址才能作为远程存储的公开前缀。
func remotePublicBase(value string) string {
	if !isAbsoluteURL(value) {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}
	if !isAbsoluteURL(endpoint) {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

func newS3Client(opts s3ClientOptions) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing S3 credentials")
	}

	credentialsProvider := aws.NewCredentialsCache(
		credentials.NewStaticCredentialsProvider(accessKey, secretKey, strings.TrimSpace(opts.SessionToken)),
	)

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentialsProvider,
	}

	endpoint := opts.Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return client, nil
}
