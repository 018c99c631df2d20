package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists files to the local filesystem. Each bucket is a
// subdirectory of baseDir and is served under publicBase.
type LocalStorage struct {
	baseDir    string
	publicBase string
}

// NewLocalStorage creates a LocalStorage instance. The base directory is
// created if it does not exist; buckets are created on demand.
func NewLocalStorage(baseDir, publicBase string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	publicBase = strings.TrimRight(strings.TrimSpace(publicBase), "/")
	if publicBase == "" {
		publicBase = "/files"
	}
	return &LocalStorage{baseDir: baseDir, publicBase: publicBase}, nil
}

// LocalBaseDir returns the root directory used for storing files.
func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

// PublicBase returns the URL prefix the base directory is served under.
func (s *LocalStorage) PublicBase() string {
	return s.publicBase
}

func (s *LocalStorage) bucketDir(bucket string) (string, error) {
	name := sanitizePathSegment(bucket)
	if name == "" {
		return "", errors.New("invalid bucket name")
	}
	return filepath.Join(s.baseDir, name), nil
}

// Put writes the object under the bucket directory.
func (s *LocalStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
		}
		return fmt.Errorf("stat bucket: %w", err)
	}

	cleaned := filepath.Clean("/" + key)
	absPath := filepath.Join(dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// CreateBucket creates the bucket directory.
func (s *LocalStorage) CreateBucket(ctx context.Context, bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		return ErrBucketExists
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *LocalStorage) PublicURL(bucket, key string) string {
	return joinURL(s.publicBase, sanitizePathSegment(bucket), key)
}

var _ Backend = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
