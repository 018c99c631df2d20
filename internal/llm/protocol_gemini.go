package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fitlook/internal/utils"

	"github.com/sirupsen/logrus"
)

const DriverGeminiHTTP = "gemini_http"

// Gemini 的 REST 流式接口，供代理网关或自建端点使用。
const geminiStreamEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:streamGenerateContent?alt=sse"

// Request payload pieces ----------------------------------------------------
type (
	geminiInlineData struct {
		MimeType string `json:"mimeType,omitempty"`
		Data     string `json:"data,omitempty"`
	}
	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inlineData,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiSafetySetting struct {
		Category  string `json:"category"`
		Threshold string `json:"threshold"`
	}
	geminiGenerationConfig struct {
		ResponseModalities []string `json:"responseModalities,omitempty"`
	}
	geminiRequest struct {
		Contents         []geminiContent         `json:"contents"`
		SafetySettings   []geminiSafetySetting   `json:"safetySettings,omitempty"`
		GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	}
)

// Response payload pieces ---------------------------------------------------
type (
	geminiCandidate struct {
		FinishReason string        `json:"finishReason,omitempty"`
		Content      geminiContent `json:"content"`
	}
	geminiError struct {
		Message string `json:"message"`
	}
	geminiStreamChunk struct {
		Candidates []geminiCandidate `json:"candidates"`
		Error      *geminiError      `json:"error,omitempty"`
	}
)

var geminiBlockNone = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
}

// GeminiHTTPService 直接走 Gemini REST 协议（SSE），可指向兼容网关。
type GeminiHTTPService struct {
	apiKey     string
	endpoint   string
	media      MediaService
	httpClient *http.Client
}

var _ Gateway = (*GeminiHTTPService)(nil)

func NewGeminiHTTPService(apiKey, endpoint string, media MediaService) (*GeminiHTTPService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	if media == nil {
		return nil, errors.New("media service is nil")
	}
	return &GeminiHTTPService{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   strings.TrimSpace(endpoint),
		media:      media,
		httpClient: &http.Client{Timeout: 0}, // 长时间流式响应，超时由 ctx 控制
	}, nil
}

func (g *GeminiHTTPService) Generate(ctx context.Context, req GenerateRequest) (*GeneratedImage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	customer, err := g.inlinePart(ctx, req.CustomerImageURL)
	if err != nil {
		return nil, fmt.Errorf("load customer image: %w", err)
	}
	garment, err := g.inlinePart(ctx, req.GarmentImageURL)
	if err != nil {
		return nil, fmt.Errorf("load garment image: %w", err)
	}
	parts := []geminiPart{{Text: req.Prompt}, customer, {Text: garmentMarker}, garment}
	return g.stream(ctx, req.ModelID, parts, geminiBlockNone)
}

func (g *GeminiHTTPService) EditImage(ctx context.Context, sourceURL, prompt string) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	source, err := g.inlinePart(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("load source image: %w", err)
	}
	return g.stream(ctx, EditModel, []geminiPart{source, {Text: prompt}}, nil)
}

func (g *GeminiHTTPService) inlinePart(ctx context.Context, ref string) (geminiPart, error) {
	media, err := g.media.Load(ctx, ref)
	if err != nil {
		return geminiPart{}, err
	}
	return geminiPart{
		InlineData: &geminiInlineData{
			MimeType: media.MimeType,
			Data:     base64.StdEncoding.EncodeToString(media.Data),
		},
	}, nil
}

// stream 发送请求并解析 SSE，返回遇到的第一张内联图片。
func (g *GeminiHTTPService) stream(ctx context.Context, model string, parts []geminiPart, safety []geminiSafetySetting) (*GeneratedImage, error) {
	logger := providerLogger(ctx, DriverGeminiHTTP, model)

	reqBody := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		SafetySettings:   safety,
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal request: %w", err)
	}

	targetURL := resolveGeminiEndpoint(g.endpoint, model)
	logger.WithFields(logrus.Fields{
		"target_url": logSnippet(targetURL),
		"part_count": len(parts),
	}).Info("gemini_generate_content_start")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("gemini create request: %w", err)
	}
	// 使用请求头传递密钥，避免出现在 URL 日志中
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(buf.String()),
		}).Error("gemini generate content http error")
		return nil, fmt.Errorf("gemini http %d: %s", resp.StatusCode, utils.Truncate(buf.String(), 300))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	var assistantText string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			break
		}

		var chunk geminiStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			logger.WithError(err).Warn("gemini failed to unmarshal stream chunk")
			continue
		}
		if chunk.Error != nil && strings.TrimSpace(chunk.Error.Message) != "" {
			logger.WithField("message", chunk.Error.Message).Error("gemini stream error chunk")
			assistantText = appendLine(assistantText, chunk.Error.Message)
			continue
		}
		if len(chunk.Candidates) == 0 {
			continue
		}

		cand := chunk.Candidates[0]
		if cand.FinishReason != "" {
			logger.WithField("finish_reason", cand.FinishReason).Debug("gemini finish signal")
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				assistantText = appendLine(assistantText, part.Text)
			}
			if part.InlineData == nil || strings.TrimSpace(part.InlineData.Data) == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(part.InlineData.Data))
			if err != nil {
				logger.WithError(err).Warn("gemini inline image is not valid base64")
				continue
			}
			logger.WithFields(logrus.Fields{
				"mime":       part.InlineData.MimeType,
				"size_bytes": len(data),
			}).Info("gemini collected inline image")
			return &GeneratedImage{Data: data, MimeType: utils.NormalizeMime(part.InlineData.MimeType)}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gemini stream read error: %w", err)
	}
	return nil, noImageError(assistantText)
}

// appendLine concatenates messages with newlines, avoiding empty prefixes.
func appendLine(current, next string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return current
	}
	if strings.TrimSpace(current) == "" {
		return next
	}
	return current + "\n" + next
}

// resolveGeminiEndpoint builds the request URL from a provided endpoint template or base URL.
// - If endpoint contains "%s", it is treated as a fmt template and will be formatted with model.
// - If endpoint is a bare base URL, the default Gemini suffix is appended.
// - If empty, fall back to the public Gemini endpoint.
func resolveGeminiEndpoint(endpoint, model string) string {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		return fmt.Sprintf(geminiStreamEndpoint, model)
	}

	if strings.Contains(base, "%s") {
		return fmt.Sprintf(base, model)
	}

	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", base, model)
}
