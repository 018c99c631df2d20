package api

import (
	"fitlook/internal/auth"
	"fitlook/internal/config"
	"fitlook/internal/llm"
	"fitlook/internal/model"
	"fitlook/internal/service"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	uploader    service.ImageUploader
	authManager *auth.Manager

	// 服务层
	accounts *service.AccountService
	usage    *service.UsageService
	sessions *service.SessionRegistry
	editor   *service.EditService

	// SSE 客户端管理，按店铺 ID 分组
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, uploader service.ImageUploader, gateway llm.Gateway) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	var history service.HistoryRecorder
	var garments service.GarmentLister
	if repo != nil {
		history = repo
		garments = repo
	}
	sessions := service.NewSessionRegistry(garments, gateway, uploader, history)

	handler := &HTTPHandler{
		cfg:         cfg,
		repo:        repo,
		uploader:    uploader,
		authManager: authManager,
		accounts:    service.NewAccountService(repo, cfg.FreeTriesDefault),
		usage:       service.NewUsageService(repo, cfg.FreeTriesDefault, cfg.CostPerGeneration),
		sessions:    sessions,
		editor:      service.NewEditService(gateway, uploader),
		sseClients:  make(map[string][]chan sseMessage),
	}

	// 设置 SSE 通知回调
	sessions.SetNotifyFunc(handler.notifyTryOnEvent)

	return handler, nil
}

// notifyTryOnEvent 推送试穿进度与完成事件
func (h *HTTPHandler) notifyTryOnEvent(shopID, event string, payload interface{}) {
	if strings.TrimSpace(shopID) == "" {
		return
	}
	h.publishSSEMessage(shopID, sseMessage{
		event: event,
		data:  gin.H{"shop_id": shopID, "data": payload},
	})
}
