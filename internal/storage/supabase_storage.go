package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// supabaseStorage 使用 Supabase Storage，公开桶的对象可通过 /object/public 访问。
type supabaseStorage struct {
	client  *storage_go.Client
	baseURL string
}

func NewSupabaseStorage(supabaseURL, serviceKey string) (Backend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(supabaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: missing Supabase URL")
	}
	if strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("storage: missing Supabase service key")
	}
	client := storage_go.NewClient(baseURL+"/storage/v1", strings.TrimSpace(serviceKey), nil)
	return &supabaseStorage{client: client, baseURL: baseURL}, nil
}

func (s *supabaseStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ct := strings.TrimSpace(contentType)
	upsert := false
	_, err := s.client.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &ct,
		Upsert:      &upsert,
	})
	if err != nil {
		if isSupabaseBucketMissing(err) {
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		}
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

func (s *supabaseStorage) CreateBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.CreateBucket(bucket, storage_go.BucketOptions{
		Public:           true,
		AllowedMimeTypes: AllowedImageTypes,
	})
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return ErrBucketExists
	}
	return fmt.Errorf("create bucket: %w", err)
}

func (s *supabaseStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, strings.TrimLeft(key, "/"))
}

// isSupabaseBucketMissing Supabase 对缺失的桶返回 "Bucket not found" 或 404。
func isSupabaseBucketMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bucket not found") || strings.Contains(msg, "404")
}

var _ Backend = (*supabaseStorage)(nil)
