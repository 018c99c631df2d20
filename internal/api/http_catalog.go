package api

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ListCatalogOptions 返回分类、尺码与试穿模式
func (h *HTTPHandler) ListCatalogOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": entity.GarmentCategories,
		"sizes":      entity.GarmentSizes,
		"modes":      llm.Modes(),
	})
}

func (h *HTTPHandler) ListGarments(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query entity.GarmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		InvalidPayload(c)
		return
	}
	query.UserID = user.ShopID()
	query.Category = strings.TrimSpace(query.Category)
	if query.Category != "" && !entity.IsValidCategory(query.Category) {
		BadRequest(c, ErrCodeInvalidCategory, "unknown garment category")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	garments, err := h.repo.ListGarments(ctx, query)
	if err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to list garments")
		InternalError(c, "failed to load garments")
		return
	}
	if garments == nil {
		garments = []entity.DbGarment{}
	}
	c.JSON(http.StatusOK, gin.H{"garments": garments})
}

func (h *HTTPHandler) GetGarment(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	garment, err := h.repo.GetGarment(ctx, user.ShopID(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.garmentError(c, err, "failed to load garment")
		return
	}
	c.JSON(http.StatusOK, garment)
}

func (h *HTTPHandler) CreateGarment(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.GarmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	name := trimmed(req.Name)
	if name == "" {
		MissingField(c, "name")
		return
	}
	category := trimmed(req.Category)
	if !entity.IsValidCategory(category) {
		BadRequest(c, ErrCodeInvalidCategory, "unknown garment category")
		return
	}

	garment := &entity.DbGarment{
		ID:          entity.NewID(),
		UserID:      user.ShopID(),
		Name:        name,
		Category:    category,
		ImageURL:    trimmed(req.ImageURL),
		Description: trimmed(req.Description),
		SizeOptions: entity.NormalizeSizes(req.SizeOptions),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.CreateGarment(ctx, garment); err != nil {
		logrus.WithError(err).WithField("shop_id", user.ShopID()).Error("failed to create garment")
		InternalError(c, "failed to create garment")
		return
	}
	c.JSON(http.StatusCreated, garment)
}

func (h *HTTPHandler) UpdateGarment(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.GarmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	updates := entity.GarmentUpdates{
		Description: trimmedPtr(req.Description),
		ImageURL:    trimmedPtr(req.ImageURL),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			MissingField(c, "name")
			return
		}
		updates.Name = &name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if !entity.IsValidCategory(category) {
			BadRequest(c, ErrCodeInvalidCategory, "unknown garment category")
			return
		}
		updates.Category = &category
	}
	if req.SizeOptions != nil {
		sizes := entity.NormalizeSizes(req.SizeOptions)
		updates.SizeOptions = &sizes
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := strings.TrimSpace(c.Param("id"))
	if err := h.repo.UpdateGarment(ctx, user.ShopID(), id, updates); err != nil {
		h.garmentError(c, err, "failed to update garment")
		return
	}
	garment, err := h.repo.GetGarment(ctx, user.ShopID(), id)
	if err != nil {
		h.garmentError(c, err, "failed to load garment")
		return
	}
	c.JSON(http.StatusOK, garment)
}

func (h *HTTPHandler) DeleteGarment(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteGarment(ctx, user.ShopID(), strings.TrimSpace(c.Param("id"))); err != nil {
		h.garmentError(c, err, "failed to delete garment")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) garmentError(c *gin.Context, err error, message string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, ErrCodeGarmentNotFound, "garment not found")
		return
	}
	logrus.WithError(err).WithField("garment_id", c.Param("id")).Error(message)
	InternalError(c, message)
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}
