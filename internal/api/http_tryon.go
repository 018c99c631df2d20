package api

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fitlook/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunTryOn 同步执行一次试穿（单件或按分类批量）。
func (h *HTTPHandler) RunTryOn(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.TryOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	input, ok := h.resolveTryOnInput(c, user, req)
	if !ok {
		return
	}

	orchestrator := h.sessions.Get(user.ShopID())
	outcome, err := orchestrator.Run(c.Request.Context(), input)
	if err != nil {
		var details any
		if outcome != nil {
			details = gin.H{"failed": outcome.Failed, "total": outcome.Total}
		}
		TryOnError(c, err, details)
		return
	}

	_, cursor := orchestrator.Results()
	c.JSON(http.StatusOK, outcome.Response(cursor))
}

// resolveTryOnInput 加载顾客与服装。顾客或服装不属于当前店铺时返回 404。
func (h *HTTPHandler) resolveTryOnInput(c *gin.Context, user *RequestUser, req entity.TryOnRequest) (service.TryOnInput, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	input := service.TryOnInput{
		Selection:   strings.ToLower(strings.TrimSpace(req.Selection)),
		Category:    strings.TrimSpace(req.Category),
		ModeID:      req.Mode,
		Instruction: req.Instruction,
	}

	customer, err := h.repo.GetCustomer(ctx, user.ShopID(), strings.TrimSpace(req.CustomerID))
	if err != nil {
		h.customerError(c, err, "failed to load customer")
		return input, false
	}
	input.Customer = customer

	// 缺少 garment_id 时交给编排器按无效选择拒绝
	if garmentID := strings.TrimSpace(req.GarmentID); input.Selection == service.SelectionSingle && garmentID != "" {
		garment, err := h.repo.GetGarment(ctx, user.ShopID(), garmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, ErrCodeGarmentNotFound, "garment not found")
				return input, false
			}
			logrus.WithError(err).WithField("garment_id", garmentID).Error("failed to load garment")
			InternalError(c, "failed to load garment")
			return input, false
		}
		input.Garment = garment
	}
	if input.Selection == service.SelectionCategory && input.Category != "" && !entity.IsValidCategory(input.Category) {
		BadRequest(c, ErrCodeInvalidCategory, "unknown garment category")
		return input, false
	}

	input.SystemPrompt = h.accounts.SystemPrompt(ctx)
	return input, true
}

// TryOnProgress 返回当前批量进度，没有进行中的批量时为 null。
func (h *HTTPHandler) TryOnProgress(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	orchestrator, ok := h.sessions.Peek(user.ShopID())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"state": service.StateIdle, "progress": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":    orchestrator.State(),
		"progress": orchestrator.Progress(),
	})
}

// StreamTryOnEvents 推送 tryon_progress 与 tryon_completed 事件
func (h *HTTPHandler) StreamTryOnEvents(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	h.streamEvents(c, user.ShopID())
}

// TryOnResults 返回最近一次试穿结果与当前位置
func (h *HTTPHandler) TryOnResults(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	orchestrator := h.sessions.Get(user.ShopID())
	results, cursor := orchestrator.Results()
	c.JSON(http.StatusOK, gin.H{
		"state":   orchestrator.State(),
		"results": results,
		"cursor":  cursor,
	})
}

func (h *HTTPHandler) NextResult(c *gin.Context) {
	h.moveCursor(c, (*service.Orchestrator).Next)
}

func (h *HTTPHandler) PrevResult(c *gin.Context) {
	h.moveCursor(c, (*service.Orchestrator).Prev)
}

func (h *HTTPHandler) moveCursor(c *gin.Context, move func(*service.Orchestrator) (entity.TryOnResultItem, int, bool)) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	item, cursor, ok := move(h.sessions.Get(user.ShopID()))
	if !ok {
		NotFound(c, ErrCodeResultOutOfRange, "no try-on results")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": cursor, "result": item})
}

type selectResultRequest struct {
	Index *int `json:"index" binding:"required"`
}

func (h *HTTPHandler) SelectResult(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	var req selectResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		MissingField(c, "index")
		return
	}
	item, err := h.sessions.Get(user.ShopID()).Select(*req.Index)
	if err != nil {
		BadRequest(c, ErrCodeResultOutOfRange, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": *req.Index, "result": item})
}

// EditImage 按提示词编辑已有图片，不写入历史。
func (h *HTTPHandler) EditImage(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	var req entity.ImageEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	url, err := h.editor.Edit(c.Request.Context(), user.ShopID(), req.SourceURL, req.Prompt)
	if err != nil {
		TryOnError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, entity.UploadResponse{URL: url})
}
