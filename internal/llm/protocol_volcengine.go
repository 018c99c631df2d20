package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

//文档:https://www.volcengine.com/docs/82379/1824121

// generateImagesByVolcengineProtocol 以流式方式调用 Seedream，返回第一张成功图片的下载链接。
func generateImagesByVolcengineProtocol(ctx context.Context, client *arkruntime.Client, model, prompt string, images []string) (imageURL, assistantText string, err error) {
	logger := providerLogger(ctx, DriverVolcengine, model)

	var sequentialImageGeneration volcModel.SequentialImageGeneration = "disabled" // 只生成一张
	generateReq := volcModel.GenerateImagesRequest{
		Model:                     model,
		Prompt:                    prompt,
		Image:                     images,
		Size:                      volcengine.String("2K"),
		ResponseFormat:            volcengine.String(volcModel.GenerateImagesResponseFormatURL), // 链接 24 小时内有效，需立即转存
		Watermark:                 volcengine.Bool(false),
		SequentialImageGeneration: &sequentialImageGeneration,
	}
	stream, err := client.GenerateImagesStreaming(ctx, generateReq)
	if err != nil {
		return "", "", fmt.Errorf("volcengine generate images: %w", err)
	}
	defer stream.Close()

	for {
		recv, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.WithError(err).Warn("volcengine stream receive failed")
			if imageURL == "" {
				return "", assistantText, fmt.Errorf("volcengine stream: %w", err)
			}
			break
		}
		switch recv.Type {
		case "image_generation.partial_failed":
			if recv.Error != nil {
				assistantText = appendLine(assistantText, recv.Error.Message)
				logger.WithField("code", recv.Error.Code).Warn("volcengine partial failed")
				if strings.EqualFold(recv.Error.Code, "InternalServiceError") {
					return "", assistantText, nil
				}
			}
		case "image_generation.partial_succeeded":
			if recv.Error == nil && recv.Url != nil && imageURL == "" {
				imageURL = strings.TrimSpace(*recv.Url)
				logger.WithField("size", recv.Size).Info("volcengine image generated")
			}
		case "image_generation.completed":
			if recv.Usage != nil {
				logger.WithField("usage", *recv.Usage).Debug("volcengine generation completed")
			}
		}
	}
	return imageURL, assistantText, nil
}

func logVolcengineStart(logger *logrus.Entry, prompt string, imageCount int) {
	logger.WithFields(logrus.Fields{
		"prompt_length":  len([]rune(prompt)),
		"prompt_preview": logSnippet(prompt),
		"image_count":    imageCount,
	}).Info("llm_tryon_start")
}
