package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitlook/internal/utils"
)

// ErrNoImage 模型响应中没有图片
var ErrNoImage = errors.New("no image generated")

// GeneratedImage 模型合成出的原始图片
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// GenerateRequest 一次试穿合成请求。Prompt 是已组装好的完整指令。
type GenerateRequest struct {
	CustomerImageURL string
	GarmentImageURL  string
	Prompt           string
	ModelID          string
}

// Gateway 外部图像生成模型的统一入口。
type Gateway interface {
	// Generate 用顾客照片与服装照片合成试穿图。
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error)
	// EditImage 按提示词修改已有图片。
	EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error)
}

func (r GenerateRequest) validate() error {
	if strings.TrimSpace(r.CustomerImageURL) == "" {
		return errors.New("customer image url is required")
	}
	if strings.TrimSpace(r.GarmentImageURL) == "" {
		return errors.New("garment image url is required")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is empty")
	}
	if strings.TrimSpace(r.ModelID) == "" {
		return errors.New("model is required")
	}
	return nil
}

// noImageError 把模型返回的文字附在错误里，便于排查被拒绝的请求。
func noImageError(text string) error {
	return fmt.Errorf("%w. model response: %s", ErrNoImage, utils.Truncate(text, noImageTextLimit))
}

const noImageTextLimit = 100

// timeoutGateway 为每次调用加上统一的超时。
type timeoutGateway struct {
	inner   Gateway
	timeout time.Duration
}

// WithTimeout 包装 Gateway，timeout <= 0 时原样返回。
func WithTimeout(inner Gateway, timeout time.Duration) Gateway {
	if inner == nil || timeout <= 0 {
		return inner
	}
	return &timeoutGateway{inner: inner, timeout: timeout}
}

func (g *timeoutGateway) Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.Generate(ctx, req)
}

func (g *timeoutGateway) EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.inner.EditImage(ctx, sourceURL, prompt)
}
