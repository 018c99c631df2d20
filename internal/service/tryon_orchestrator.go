package service

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State 单次试穿编排所处的阶段
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateRunning            State = "running"
	StateSucceeded          State = "succeeded"
	StatePartiallySucceeded State = "partially_succeeded"
	StateFailed             State = "failed"
)

// Active 是否处于不可重入的阶段
func (s State) Active() bool {
	return s == StateValidating || s == StateRunning
}

const (
	SelectionSingle   = "single"
	SelectionCategory = "category"

	// FolderTryOns 试穿结果在存储中的目录
	FolderTryOns = "tryons"

	EventTryOnProgress  = "tryon_progress"
	EventTryOnCompleted = "tryon_completed"

	historyWriteTimeout = 5 * time.Second
)

// GarmentLister 解析批量试穿的服装列表，需按 created_at 倒序返回。
type GarmentLister interface {
	ListGarments(ctx context.Context, query entity.GarmentQuery) ([]entity.DbGarment, error)
}

// HistoryRecorder 写入试穿历史
type HistoryRecorder interface {
	CreateHistory(ctx context.Context, record *entity.DbTryonHistory) error
}

// ImageUploader 把生成的图片写入对象存储并返回可访问的 URL。
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (string, error)
}

// Progress 批量试穿进度，仅在 Running 阶段存在。
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// TryOnInput 已解析好的试穿请求
type TryOnInput struct {
	Customer     *entity.DbCustomer
	Selection    string
	Garment      *entity.DbGarment
	Category     string
	ModeID       string
	SystemPrompt string
	Instruction  string
}

// Outcome 一次试穿的结果
type Outcome struct {
	Status    State
	Results   []entity.TryOnResultItem
	Failed    int
	Total     int
	Cancelled bool
}

// Response 转换为接口返回结构
func (o *Outcome) Response(cursor int) entity.TryOnResponse {
	if o == nil {
		return entity.TryOnResponse{Status: string(StateFailed), Results: []entity.TryOnResultItem{}}
	}
	results := o.Results
	if results == nil {
		results = []entity.TryOnResultItem{}
	}
	return entity.TryOnResponse{
		Status:  string(o.Status),
		Results: results,
		Failed:  o.Failed,
		Total:   o.Total,
		Cursor:  cursor,
	}
}

// OrchestratorDeps 编排器依赖，全部由调用方注入。
type OrchestratorDeps struct {
	Garments GarmentLister
	Gateway  llm.Gateway
	Uploader ImageUploader
	History  HistoryRecorder
	// Notify 推送进度与完成事件，可为空
	Notify func(event string, payload interface{})
	Now    func() time.Time
}

// Orchestrator 驱动单件与按分类批量的试穿生成。
// 每个店铺会话持有一个实例，同一时刻只允许一次编排运行。
type Orchestrator struct {
	shopID string
	deps   OrchestratorDeps

	mu       sync.Mutex
	state    State
	progress *Progress
	cursor   *ResultCursor
}

// NewOrchestrator 创建店铺会话的编排器
func NewOrchestrator(shopID string, deps OrchestratorDeps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		shopID: shopID,
		deps:   deps,
		state:  StateIdle,
		cursor: NewResultCursor(nil),
	}
}

// State 当前阶段
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress 返回批量进度快照，不在批量运行时返回 nil。
func (o *Orchestrator) Progress() *Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress == nil {
		return nil
	}
	snapshot := *o.progress
	return &snapshot
}

// Run 执行一次试穿。运行中再次调用返回 ErrAlreadyInProgress。
func (o *Orchestrator) Run(ctx context.Context, input TryOnInput) (outcome *Outcome, err error) {
	if !o.begin() {
		return nil, ErrAlreadyInProgress
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("try-on aborted: %v", r)
			logrus.WithField("shop_id", o.shopID).WithField("panic", r).Error("try-on panicked")
		}
		o.finish(outcome, err)
	}()

	return o.run(llm.ContextWithShop(ctx, o.shopID), input)
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Active() {
		return false
	}
	o.state = StateValidating
	o.progress = nil
	o.cursor = NewResultCursor(nil)
	return true
}

func (o *Orchestrator) finish(outcome *Outcome, err error) {
	o.mu.Lock()
	o.progress = nil
	switch {
	case outcome != nil && len(outcome.Results) > 0:
		o.state = outcome.Status
		o.cursor = NewResultCursor(outcome.Results)
	default:
		o.state = StateFailed
		if outcome != nil {
			outcome.Status = StateFailed
		}
	}
	state := o.state
	o.mu.Unlock()

	fields := logrus.Fields{"shop_id": o.shopID, "state": state}
	if outcome != nil {
		fields["succeeded"] = len(outcome.Results)
		fields["failed"] = outcome.Failed
		fields["total"] = outcome.Total
	}
	if err != nil {
		logrus.WithError(err).WithFields(fields).Warn("try-on finished with error")
	} else {
		logrus.WithFields(fields).Info("try-on finished")
	}

	payload := map[string]interface{}{"status": state}
	if outcome != nil {
		payload["results"] = outcome.Results
		payload["failed"] = outcome.Failed
		payload["total"] = outcome.Total
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	o.notify(EventTryOnProgress, nil)
	o.notify(EventTryOnCompleted, payload)
}

func (o *Orchestrator) run(ctx context.Context, input TryOnInput) (*Outcome, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	if input.Customer == nil || strings.TrimSpace(input.Customer.PhotoURL) == "" {
		return nil, invalidSelection("customer photo is required")
	}
	mode, ok := llm.LookupMode(input.ModeID)
	if !ok {
		return nil, invalidSelection(fmt.Sprintf("unknown mode %q", input.ModeID))
	}
	prompt := llm.ComposeTryOnPrompt(mode, input.SystemPrompt, input.Instruction)

	switch input.Selection {
	case SelectionSingle:
		if input.Garment == nil || strings.TrimSpace(input.Garment.ImageURL) == "" {
			return nil, invalidSelection("garment photo is required")
		}
		return o.runSingle(ctx, input, mode, prompt)
	case SelectionCategory:
		category := strings.TrimSpace(input.Category)
		if category == "" {
			return nil, invalidSelection("category is required")
		}
		return o.runBatch(ctx, input, mode, prompt, category)
	default:
		return nil, invalidSelection(fmt.Sprintf("unknown selection %q", input.Selection))
	}
}

func (o *Orchestrator) ready() error {
	if o.deps.Gateway == nil || o.deps.Uploader == nil {
		return fmt.Errorf("orchestrator not initialised")
	}
	return nil
}

func (o *Orchestrator) runSingle(ctx context.Context, input TryOnInput, mode llm.Mode, prompt string) (*Outcome, error) {
	o.setState(StateRunning)

	garment := *input.Garment
	url, err := o.generateOne(ctx, input.Customer, garment, mode, prompt, mode.Label)
	if err != nil {
		return &Outcome{Total: 1, Failed: 1}, err
	}
	return &Outcome{
		Status:  StateSucceeded,
		Results: []entity.TryOnResultItem{{Garment: garment, URL: url}},
		Total:   1,
	}, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, input TryOnInput, mode llm.Mode, prompt, category string) (*Outcome, error) {
	if o.deps.Garments == nil {
		return nil, fmt.Errorf("garment catalog not configured")
	}
	garments, err := o.deps.Garments.ListGarments(ctx, entity.GarmentQuery{UserID: o.shopID, Category: category})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category %q: %w", category, err)
	}
	if len(garments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, category)
	}

	o.setState(StateRunning)

	total := len(garments)
	label := fmt.Sprintf("%s - Category: %s", mode.Label, category)
	outcome := &Outcome{Total: total, Results: make([]entity.TryOnResultItem, 0, total)}

	for idx, garment := range garments {
		if ctx.Err() != nil {
			outcome.Cancelled = true
			break
		}
		o.setProgress(idx+1, total)

		url, err := o.generateOne(ctx, input.Customer, garment, mode, prompt, label)
		if err != nil {
			outcome.Failed++
			logrus.WithError(err).WithFields(logrus.Fields{
				"shop_id":    o.shopID,
				"garment_id": garment.ID,
				"category":   category,
				"index":      idx + 1,
				"total":      total,
			}).Warn("try-on item failed, skipping")
			continue
		}
		outcome.Results = append(outcome.Results, entity.TryOnResultItem{Garment: garment, URL: url})
	}

	if len(outcome.Results) == 0 {
		outcome.Status = StateFailed
		if outcome.Cancelled {
			return outcome, fmt.Errorf("try-on batch cancelled: %w", ctx.Err())
		}
		return outcome, fmt.Errorf("%w: %d of %d failed", ErrBatchFullyFailed, outcome.Failed, total)
	}
	if outcome.Failed == 0 && !outcome.Cancelled {
		outcome.Status = StateSucceeded
	} else {
		outcome.Status = StatePartiallySucceeded
	}
	return outcome, nil
}

// generateOne 生成、上传并记录一件服装的试穿结果。
func (o *Orchestrator) generateOne(ctx context.Context, customer *entity.DbCustomer, garment entity.DbGarment, mode llm.Mode, prompt, label string) (string, error) {
	if strings.TrimSpace(garment.ImageURL) == "" {
		return "", &GenerationError{Cause: fmt.Errorf("garment %s has no image", garment.ID)}
	}

	image, err := o.deps.Gateway.Generate(ctx, llm.GenerateRequest{
		CustomerImageURL: customer.PhotoURL,
		GarmentImageURL:  garment.ImageURL,
		Prompt:           prompt,
		ModelID:          mode.Model,
	})
	if err != nil {
		return "", &GenerationError{Cause: err}
	}
	if image == nil || len(image.Data) == 0 {
		return "", &GenerationError{Cause: llm.ErrNoImage}
	}

	url, err := o.deps.Uploader.Upload(ctx, image.Data, image.MimeType, FolderTryOns)
	if err != nil || strings.TrimSpace(url) == "" {
		if err == nil {
			err = errors.New("empty url")
		}
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	record := &entity.DbTryonHistory{
		ID:             entity.NewID(),
		CreatedAt:      o.deps.Now().UTC(),
		UserID:         o.shopID,
		CustomerID:     customer.ID,
		OutputImageURL: url,
		PromptUsed:     label,
	}
	if garment.ID != "" {
		garmentID := garment.ID
		record.GarmentID = &garmentID
	}
	nonCritical("record_history", logrus.Fields{
		"shop_id":    o.shopID,
		"garment_id": garment.ID,
		"url":        url,
	}, func() error {
		return o.recordHistory(ctx, record)
	})

	return url, nil
}

// recordHistory 写入历史记录；请求被取消时依然完成已生成结果的写入。
func (o *Orchestrator) recordHistory(ctx context.Context, record *entity.DbTryonHistory) error {
	if o.deps.History == nil {
		return fmt.Errorf("history recorder not configured")
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	return o.deps.History.CreateHistory(writeCtx, record)
}

// nonCritical 执行不影响主流程结果的副作用，失败只记录日志。
func nonCritical(name string, fields logrus.Fields, fn func() error) {
	if err := fn(); err != nil {
		logrus.WithError(err).WithFields(fields).WithField("side_effect", name).Warn("non-critical side effect failed")
	}
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *Orchestrator) setProgress(current, total int) {
	o.mu.Lock()
	o.progress = &Progress{Current: current, Total: total}
	snapshot := *o.progress
	o.mu.Unlock()
	o.notify(EventTryOnProgress, snapshot)
}

func (o *Orchestrator) notify(event string, payload interface{}) {
	if o.deps.Notify == nil {
		return
	}
	o.deps.Notify(event, payload)
}

// Results 返回最近一次结果及当前位置
func (o *Orchestrator) Results() ([]entity.TryOnResultItem, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cursor.Results(), o.cursor.Index()
}

// Next 切换到下一张结果
func (o *Orchestrator) Next() (entity.TryOnResultItem, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.cursor.Next()
	item, ok := o.cursor.Current()
	return item, idx, ok
}

// Prev 切换到上一张结果
func (o *Orchestrator) Prev() (entity.TryOnResultItem, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.cursor.Prev()
	item, ok := o.cursor.Current()
	return item, idx, ok
}

// Select 跳到指定结果
func (o *Orchestrator) Select(index int) (entity.TryOnResultItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.cursor.Select(index); err != nil {
		return entity.TryOnResultItem{}, err
	}
	item, _ := o.cursor.Current()
	return item, nil
}
