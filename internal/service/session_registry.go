package service

import (
	"fitlook/internal/llm"
	"strings"
	"sync"
)

// SessionRegistry 按店铺保存编排器，保证每个会话只有一个实例。
type SessionRegistry struct {
	garments GarmentLister
	gateway  llm.Gateway
	uploader ImageUploader
	history  HistoryRecorder

	mu       sync.Mutex
	sessions map[string]*Orchestrator

	// notifyFunc 用于推送试穿事件（由调用方设置）
	notifyFunc func(shopID, event string, payload interface{})
}

// NewSessionRegistry 创建会话注册表
func NewSessionRegistry(garments GarmentLister, gateway llm.Gateway, uploader ImageUploader, history HistoryRecorder) *SessionRegistry {
	return &SessionRegistry{
		garments: garments,
		gateway:  gateway,
		uploader: uploader,
		history:  history,
		sessions: make(map[string]*Orchestrator),
	}
}

// SetNotifyFunc 设置通知函数（用于 SSE 推送），需在处理请求前调用。
func (r *SessionRegistry) SetNotifyFunc(fn func(shopID, event string, payload interface{})) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifyFunc = fn
}

// Get 返回店铺的编排器，不存在时创建。
func (r *SessionRegistry) Get(shopID string) *Orchestrator {
	key := strings.TrimSpace(shopID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if orchestrator, ok := r.sessions[key]; ok {
		return orchestrator
	}

	deps := OrchestratorDeps{
		Garments: r.garments,
		Gateway:  r.gateway,
		Uploader: r.uploader,
		History:  r.history,
	}
	if fn := r.notifyFunc; fn != nil {
		deps.Notify = func(event string, payload interface{}) {
			fn(key, event, payload)
		}
	}
	orchestrator := NewOrchestrator(key, deps)
	r.sessions[key] = orchestrator
	return orchestrator
}

// Peek 返回已存在的编排器，不创建新实例。
func (r *SessionRegistry) Peek(shopID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orchestrator, ok := r.sessions[strings.TrimSpace(shopID)]
	return orchestrator, ok
}
