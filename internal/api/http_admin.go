package api

import (
	"context"
	"errors"
	"fitlook/internal/auth"
	"fitlook/internal/entity"
	"fitlook/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminOverview 返回全部店铺的生成统计，q 按负责人姓名或店铺名过滤明细
func (h *HTTPHandler) AdminOverview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	overview, err := h.accounts.Overview(ctx, c.Query("q"))
	if err != nil {
		logrus.WithError(err).Error("failed to build admin overview")
		InternalError(c, "failed to load overview")
		return
	}
	c.JSON(http.StatusOK, overview)
}

// CreateShop 管理员直接开通店铺账户
func (h *HTTPHandler) CreateShop(c *gin.Context) {
	var req entity.ShopCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if req.FreeTries != nil && *req.FreeTries < 0 {
		BadRequest(c, ErrCodeInvalidRequest, "free_tries must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	shop, err := h.accounts.CreateShop(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			ErrorResponse(c, http.StatusConflict, ErrCodeEmailExists, "email already registered")
			return
		}
		if errors.Is(err, auth.ErrPasswordTooShort) {
			BadRequest(c, ErrCodeInvalidRequest, err.Error())
			return
		}
		logrus.WithError(err).WithField("email", req.Email).Error("failed to create shop")
		InternalError(c, "failed to create shop")
		return
	}

	logrus.WithFields(logrus.Fields{
		"shop_id":    shop.Profile.UserID,
		"created_by": CurrentUser(c).ID,
	}).Info("created shop account")
	c.JSON(http.StatusCreated, shop)
}

// UpdateShop 修改店铺名称、免费额度或套餐
func (h *HTTPHandler) UpdateShop(c *gin.Context) {
	var req entity.ShopUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if req.FreeTries != nil && *req.FreeTries < 0 {
		BadRequest(c, ErrCodeInvalidRequest, "free_tries must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	shopID := strings.TrimSpace(c.Param("id"))
	profile, err := h.accounts.UpdateShop(ctx, shopID, req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeShopNotFound, "shop not found")
			return
		}
		logrus.WithError(err).WithField("shop_id", shopID).Error("failed to update shop")
		InternalError(c, "failed to update shop")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *HTTPHandler) GetSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	setting, err := h.repo.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSettingNotFound, "setting not found")
			return
		}
		logrus.WithError(err).WithField("key", key).Error("failed to load setting")
		InternalError(c, "failed to load setting")
		return
	}
	c.JSON(http.StatusOK, setting)
}

// UpdateSetting 写入系统设置，下一次试穿即生效。
func (h *HTTPHandler) UpdateSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		MissingField(c, "key")
		return
	}

	var req entity.SettingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		MissingField(c, "value")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	setting := &entity.DbSystemSetting{Key: key, Value: req.Value}
	if existing, err := h.repo.GetSetting(ctx, key); err == nil {
		setting.Description = existing.Description
	}
	if err := h.repo.UpsertSetting(ctx, setting); err != nil {
		logrus.WithError(err).WithField("key", key).Error("failed to update setting")
		InternalError(c, "failed to update setting")
		return
	}

	logrus.WithFields(logrus.Fields{
		"key":        key,
		"updated_by": CurrentUser(c).ID,
	}).Info("updated system setting")
	c.JSON(http.StatusOK, setting)
}
