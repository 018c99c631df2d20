package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fitlook/internal/utils"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const DriverGemini = "gemini"

// GeminiService 通过官方 SDK 调用 Gemini 图像模型。
type GeminiService struct {
	apiKey string
	media  MediaService
}

var _ Gateway = (*GeminiService)(nil)

func NewGeminiService(apiKey string, media MediaService) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	if media == nil {
		return nil, errors.New("media service is nil")
	}
	return &GeminiService{apiKey: strings.TrimSpace(apiKey), media: media}, nil
}

func (g *GeminiService) Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	logger := providerLogger(ctx, DriverGemini, req.ModelID)
	logger.WithFields(logrus.Fields{
		"prompt_length":  len([]rune(req.Prompt)),
		"prompt_preview": logSnippet(req.Prompt),
	}).Info("llm_tryon_start")

	customer, err := g.media.Load(ctx, req.CustomerImageURL)
	if err != nil {
		return nil, fmt.Errorf("load customer image: %w", err)
	}
	garment, err := g.media.Load(ctx, req.GarmentImageURL)
	if err != nil {
		return nil, fmt.Errorf("load garment image: %w", err)
	}

	image, err := g.generate(ctx, req.ModelID,
		genai.Text(req.Prompt),
		genai.Blob{MIMEType: customer.MimeType, Data: customer.Data},
		genai.Text(garmentMarker),
		genai.Blob{MIMEType: garment.MimeType, Data: garment.Data},
	)
	if err != nil {
		logger.WithError(err).Warn("llm_tryon_failed")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"mime":       image.MimeType,
		"size_bytes": len(image.Data),
	}).Info("llm_tryon_completed")
	return image, nil
}

func (g *GeminiService) EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	source, err := g.media.Load(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("load source image: %w", err)
	}
	providerLogger(ctx, DriverGemini, EditModel).WithField("prompt_preview", logSnippet(prompt)).Info("llm_edit_start")
	return g.generate(ctx, EditModel,
		genai.Blob{MIMEType: source.MimeType, Data: source.Data},
		genai.Text(prompt),
	)
}

func (g *GeminiService) generate(ctx context.Context, modelID string, parts ...genai.Part) (*GeneratedImage, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelID)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return firstGenaiImage(resp)
}

// firstGenaiImage 取首个候选中的第一张内联图片。
func firstGenaiImage(resp *genai.GenerateContentResponse) (*GeneratedImage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, noImageError("")
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			if len(p.Data) > 0 {
				return &GeneratedImage{Data: p.Data, MimeType: utils.NormalizeMime(p.MIMEType)}, nil
			}
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	return nil, noImageError(text.String())
}
