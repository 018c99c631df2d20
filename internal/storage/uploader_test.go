package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}

func (m *mockBackend) CreateBucket(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

func (m *mockBackend) PublicURL(bucket, key string) string {
	return "https://cdn.example/" + bucket + "/" + key
}

var bucketMissing = fmt.Errorf("%w: public", ErrBucketNotFound)

func newTestUploader(t *testing.T, backend Backend) *Uploader {
	t.Helper()
	uploader, err := NewUploader(backend, "public", "fitlook")
	require.NoError(t, err)
	return uploader
}

func TestUploadFirstAttemptSucceeds(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Put", mock.Anything, "public", mock.AnythingOfType("string"), []byte("img"), "image/png").Return(nil).Once()

	url, err := newTestUploader(t, backend).Upload(context.Background(), []byte("img"), "image/png", "tryons")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example/public/fitlook/tryons/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
}

func TestUploadCreatesMissingBucketAndRetriesOnce(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Put", mock.Anything, "public", mock.AnythingOfType("string"), mock.Anything, "image/jpeg").Return(bucketMissing).Once()
	backend.On("CreateBucket", mock.Anything, "public").Return(nil).Once()
	backend.On("Put", mock.Anything, "public", mock.AnythingOfType("string"), mock.Anything, "image/jpeg").Return(nil).Once()

	url, err := newTestUploader(t, backend).Upload(context.Background(), []byte("img"), "image/jpeg", "customers")
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	backend.AssertExpectations(t)
	backend.AssertNumberOfCalls(t, "Put", 2)
	backend.AssertNumberOfCalls(t, "CreateBucket", 1)

	// 两次尝试写入同一个对象键
	first := backend.Calls[0].Arguments.String(2)
	retry := backend.Calls[2].Arguments.String(2)
	assert.Equal(t, first, retry)
}

func TestUploadToleratesCreateFailure(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
	}{
		{name: "并发创建导致已存在", createErr: ErrBucketExists},
		{name: "权限不足", createErr: errors.New("forbidden")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(mockBackend)
			backend.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(bucketMissing).Once()
			backend.On("CreateBucket", mock.Anything, "public").Return(tt.createErr).Once()
			backend.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

			url, err := newTestUploader(t, backend).Upload(context.Background(), []byte("img"), "image/webp", "garments")
			require.NoError(t, err)
			assert.NotEmpty(t, url)
			backend.AssertNumberOfCalls(t, "Put", 2)
		})
	}
}

func TestUploadRetryIsBounded(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(bucketMissing).Twice()
	backend.On("CreateBucket", mock.Anything, "public").Return(nil).Once()

	url, err := newTestUploader(t, backend).Upload(context.Background(), []byte("img"), "image/png", "tryons")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, url)
	backend.AssertNumberOfCalls(t, "Put", 2)
	backend.AssertNumberOfCalls(t, "CreateBucket", 1)
}

func TestUploadOtherErrorDoesNotRetry(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	_, err := newTestUploader(t, backend).Upload(context.Background(), []byte("img"), "image/png", "tryons")
	assert.ErrorIs(t, err, ErrUploadFailed)
	backend.AssertNumberOfCalls(t, "Put", 1)
	backend.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
}

func TestUploadRejectsEmptyPayload(t *testing.T) {
	backend := new(mockBackend)
	_, err := newTestUploader(t, backend).Upload(context.Background(), nil, "image/png", "tryons")
	assert.ErrorIs(t, err, ErrUploadFailed)
	backend.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewUploaderValidation(t *testing.T) {
	_, err := NewUploader(nil, "public", "")
	assert.Error(t, err)
	_, err = NewUploader(new(mockBackend), " ", "")
	assert.Error(t, err)
}
