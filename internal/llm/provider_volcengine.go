package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fitlook/internal/utils"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
)

const DriverVolcengine = "volcengine"

// VolcengineService 使用火山引擎 Seedream 模型。生成模式中的 Gemini 模型 ID 不适用，统一使用配置的模型。
type VolcengineService struct {
	client *arkruntime.Client
	model  string
	media  MediaService
}

var _ Gateway = (*VolcengineService)(nil)

func NewVolcengineService(apiKey, model string, media MediaService) (*VolcengineService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("volcengine api key is not configured")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("volcengine model is not configured")
	}
	if media == nil {
		return nil, errors.New("media service is nil")
	}
	return &VolcengineService{
		client: arkruntime.NewClientWithApiKey(strings.TrimSpace(apiKey)),
		model:  strings.TrimSpace(model),
		media:  media,
	}, nil
}

func (v *VolcengineService) Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	images, err := v.referenceImages(ctx, req.CustomerImageURL, req.GarmentImageURL)
	if err != nil {
		return nil, err
	}
	return v.run(ctx, req.Prompt, images)
}

func (v *VolcengineService) EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	images, err := v.referenceImages(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return v.run(ctx, prompt, images)
}

// referenceImages 将参考图转换为 data URL，顺序与提示词中的 IMAGE 1/IMAGE 2 一致。
func (v *VolcengineService) referenceImages(ctx context.Context, refs ...string) ([]string, error) {
	images := make([]string, 0, len(refs))
	for idx, ref := range refs {
		media, err := v.media.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load reference image %d: %w", idx+1, err)
		}
		images = append(images, utils.BuildDataURL(media.MimeType, media.Data))
	}
	return images, nil
}

func (v *VolcengineService) run(ctx context.Context, prompt string, images []string) (*GeneratedImage, error) {
	logger := providerLogger(ctx, DriverVolcengine, v.model)
	logVolcengineStart(logger, prompt, len(images))

	imageURL, assistantText, err := generateImagesByVolcengineProtocol(ctx, v.client, v.model, prompt, images)
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, noImageError(assistantText)
	}

	// 结果链接有效期有限，下载为字节交给上传适配器转存
	media, err := v.media.Load(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("download volcengine result: %w", err)
	}
	return &GeneratedImage{Data: media.Data, MimeType: media.MimeType}, nil
}
