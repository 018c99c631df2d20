package service

import (
	"context"
	"errors"
	"fitlook/internal/llm"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// FolderEdits 编辑结果在存储中的目录
const FolderEdits = "edits"

// EditService 基于已有图片做提示词编辑，结果不写入历史。
type EditService struct {
	gateway  llm.Gateway
	uploader ImageUploader
}

func NewEditService(gateway llm.Gateway, uploader ImageUploader) *EditService {
	return &EditService{gateway: gateway, uploader: uploader}
}

// Edit 生成编辑后的图片并返回存储 URL
func (s *EditService) Edit(ctx context.Context, shopID, sourceURL, prompt string) (string, error) {
	if s == nil || s.gateway == nil || s.uploader == nil {
		return "", fmt.Errorf("edit service not initialised")
	}
	sourceURL = strings.TrimSpace(sourceURL)
	prompt = strings.TrimSpace(prompt)
	if sourceURL == "" {
		return "", invalidSelection("source image is required")
	}
	if prompt == "" {
		return "", invalidSelection("edit prompt is required")
	}

	image, err := s.gateway.EditImage(llm.ContextWithShop(ctx, shopID), sourceURL, prompt)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"shop_id": shopID,
			"source":  sourceURL,
		}).Warn("image edit failed")
		return "", &GenerationError{Cause: err}
	}
	if image == nil || len(image.Data) == 0 {
		return "", &GenerationError{Cause: llm.ErrNoImage}
	}

	url, err := s.uploader.Upload(ctx, image.Data, image.MimeType, FolderEdits)
	if err != nil || strings.TrimSpace(url) == "" {
		if err == nil {
			err = errors.New("empty url")
		}
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"shop_id": shopID,
		"url":     url,
	}).Info("image edited")
	return url, nil
}
