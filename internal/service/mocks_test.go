package service

import (
	"context"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GeneratedImage, error) {
	args := m.Called(ctx, req)
	image, _ := args.Get(0).(*llm.GeneratedImage)
	return image, args.Error(1)
}

func (m *mockGateway) EditImage(ctx context.Context, sourceURL, prompt string) (*llm.GeneratedImage, error) {
	args := m.Called(ctx, sourceURL, prompt)
	image, _ := args.Get(0).(*llm.GeneratedImage)
	return image, args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, data []byte, contentType, folder string) (string, error) {
	args := m.Called(ctx, data, contentType, folder)
	return args.String(0), args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) CreateHistory(ctx context.Context, record *entity.DbTryonHistory) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type mockGarments struct {
	mock.Mock
}

func (m *mockGarments) ListGarments(ctx context.Context, query entity.GarmentQuery) ([]entity.DbGarment, error) {
	args := m.Called(ctx, query)
	garments, _ := args.Get(0).([]entity.DbGarment)
	return garments, args.Error(1)
}

type mockUsageStore struct {
	mock.Mock
}

func (m *mockUsageStore) GetProfile(ctx context.Context, userID string) (*entity.DbProfile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*entity.DbProfile)
	return profile, args.Error(1)
}

func (m *mockUsageStore) CountHistory(ctx context.Context, userID string, since time.Time) (int64, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageStore) ListHistoryTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, userID, since)
	times, _ := args.Get(0).([]time.Time)
	return times, args.Error(1)
}

var (
	_ llm.Gateway     = (*mockGateway)(nil)
	_ ImageUploader   = (*mockUploader)(nil)
	_ HistoryRecorder = (*mockHistory)(nil)
	_ GarmentLister   = (*mockGarments)(nil)
	_ UsageStore      = (*mockUsageStore)(nil)
)
