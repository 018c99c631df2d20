package api

import (
	"fitlook/internal/entity"
	"fitlook/internal/service"
	"fitlook/internal/storage"
	"fitlook/internal/utils"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// uploadFolders 允许客户端写入的目录
var uploadFolders = map[string]struct{}{
	"garments":           {},
	"customers":          {},
	service.FolderTryOns: {},
	service.FolderEdits:  {},
}

// UploadImage 接收 multipart 图片并写入对象存储，返回可访问的 URL。
func (h *HTTPHandler) UploadImage(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	if h.uploader == nil {
		ServiceUnavailable(c, "storage not configured")
		return
	}

	folder := strings.ToLower(strings.TrimSpace(c.PostForm("folder")))
	if _, ok := uploadFolders[folder]; !ok {
		ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeInvalidUpload, "invalid upload folder", gin.H{"folder": folder})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		MissingField(c, "file")
		return
	}
	if fileHeader.Size > storage.MaxUploadBytes {
		BadRequest(c, ErrCodeInvalidUpload, fmt.Sprintf("file exceeds %d bytes", storage.MaxUploadBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, ErrCodeInvalidUpload, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		BadRequest(c, ErrCodeInvalidUpload, "failed to read upload")
		return
	}
	if len(data) == 0 {
		BadRequest(c, ErrCodeInvalidUpload, "file is empty")
		return
	}
	if len(data) > storage.MaxUploadBytes {
		BadRequest(c, ErrCodeInvalidUpload, fmt.Sprintf("file exceeds %d bytes", storage.MaxUploadBytes))
		return
	}

	contentType := utils.NormalizeMime(http.DetectContentType(data))
	if !storage.IsAllowedImageType(contentType) {
		ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeInvalidUpload, "unsupported image type", gin.H{
			"content_type": contentType,
			"allowed":      storage.AllowedImageTypes,
		})
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), data, contentType, folder)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"shop_id": user.ShopID(),
			"folder":  folder,
			"size":    len(data),
		}).Error("failed to upload image")
		ErrorResponse(c, http.StatusBadGateway, ErrCodePersistenceFailed, "failed to store image")
		return
	}

	c.JSON(http.StatusCreated, entity.UploadResponse{URL: url})
}
