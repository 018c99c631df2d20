package api

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListHistory 分页返回当前店铺的试穿历史，最新在前。
func (h *HTTPHandler) ListHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query entity.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.Normalize(20, 100)
	query.UserID = user.ShopID()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, meta, err := h.repo.ListHistory(ctx, &query)
	if err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to list history")
		InternalError(c, "failed to load history")
		return
	}

	response := entity.HistoryListResponse{
		Items: make([]entity.HistoryItem, 0, len(records)),
		Meta:  meta,
	}
	for _, record := range records {
		response.Items = append(response.Items, entity.ToHistoryItem(record))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteHistory 删除历史记录，仅限所属店铺或管理员。
func (h *HTTPHandler) DeleteHistory(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := h.repo.GetHistory(ctx, id)
	if err != nil {
		h.historyError(c, err, "failed to load history")
		return
	}
	if record.UserID != user.ShopID() && !user.IsAdmin() {
		// 对其他店铺隐藏记录是否存在
		NotFound(c, ErrCodeHistoryNotFound, "history record not found")
		return
	}

	if err := h.repo.DeleteHistory(ctx, id); err != nil {
		h.historyError(c, err, "failed to delete history")
		return
	}

	logrus.WithFields(logrus.Fields{
		"history_id": id,
		"shop_id":    record.UserID,
		"deleted_by": user.ID,
	}).Info("deleted history record")
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) historyError(c *gin.Context, err error, message string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, ErrCodeHistoryNotFound, "history record not found")
		return
	}
	logrus.WithError(err).WithField("history_id", c.Param("id")).Error(message)
	InternalError(c, message)
}

// GetUsage 返回用量与计费，每次按历史记录实时计算。
func (h *HTTPHandler) GetUsage(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.usage.Summary(ctx, user.ShopID())
	if err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to compute usage")
		InternalError(c, "failed to compute usage")
		return
	}
	c.JSON(http.StatusOK, summary)
}
