package llm

import (
	"fitlook/internal/config"
	"fmt"
	"strings"
	"time"
)

// NewGateway 根据配置的驱动创建模型网关，并套上统一超时。
func NewGateway(cfg config.Config) (Gateway, error) {
	media := NewMediaService(cfg.StoragePublicBaseURL, cfg.StorageLocalDir)

	var (
		gateway Gateway
		err     error
	)
	driver := strings.ToLower(strings.TrimSpace(cfg.ModelDriver))
	switch driver {
	case "", DriverGemini:
		gateway, err = NewGeminiService(cfg.GeminiAPIKey, media)
	case DriverGeminiHTTP:
		gateway, err = NewGeminiHTTPService(cfg.GeminiAPIKey, cfg.GeminiEndpoint, media)
	case DriverVolcengine:
		gateway, err = NewVolcengineService(cfg.VolcengineAPIKey, cfg.VolcengineModel, media)
	default:
		return nil, fmt.Errorf("unsupported model driver: %s", cfg.ModelDriver)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(gateway, time.Duration(cfg.GenerationTimeoutSeconds)*time.Second), nil
}
