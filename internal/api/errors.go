package api

import (
	"context"
	"errors"
	"fitlook/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeRequestCancelled   = "ERR_REQUEST_CANCELLED"

	// 认证错误码
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "ERR_EMAIL_EXISTS"
	ErrCodeUserDisabled       = "ERR_USER_DISABLED"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"
	ErrCodeUserNotFound       = "ERR_USER_NOT_FOUND"

	// 资源错误码
	ErrCodeGarmentNotFound  = "ERR_GARMENT_NOT_FOUND"
	ErrCodeCustomerNotFound = "ERR_CUSTOMER_NOT_FOUND"
	ErrCodeHistoryNotFound  = "ERR_HISTORY_NOT_FOUND"
	ErrCodeShopNotFound     = "ERR_SHOP_NOT_FOUND"
	ErrCodeSettingNotFound  = "ERR_SETTING_NOT_FOUND"

	// 业务逻辑错误码
	ErrCodeMissingField      = "ERR_MISSING_FIELD"
	ErrCodeInvalidCategory   = "ERR_INVALID_CATEGORY"
	ErrCodeInvalidUpload     = "ERR_INVALID_UPLOAD"
	ErrCodeInvalidSelection  = "ERR_INVALID_SELECTION"
	ErrCodeEmptyCategory     = "ERR_EMPTY_CATEGORY"
	ErrCodeGenerationFailed  = "ERR_GENERATION_FAILED"
	ErrCodePersistenceFailed = "ERR_PERSISTENCE_FAILED"
	ErrCodeBatchFailed       = "ERR_BATCH_FAILED"
	ErrCodeTryOnInProgress   = "ERR_TRYON_IN_PROGRESS"
	ErrCodeResultOutOfRange  = "ERR_RESULT_OUT_OF_RANGE"
)

// APIError 统一的 API 错误响应结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// MissingField 缺少必填字段
func MissingField(c *gin.Context, field string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, field+" is required", gin.H{"field": field})
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request payload")
}

// TryOnError 把编排错误映射为 HTTP 响应，details 可为空。
func TryOnError(c *gin.Context, err error, details any) {
	status, code := classifyTryOnError(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("code", code).Warn("try-on request failed")
	}
	ErrorResponseWithDetails(c, status, code, err.Error(), details)
}

func classifyTryOnError(err error) (int, string) {
	var genErr *service.GenerationError
	switch {
	case errors.Is(err, service.ErrInvalidSelection):
		return http.StatusBadRequest, ErrCodeInvalidSelection
	case errors.Is(err, service.ErrEmptyCategory):
		return http.StatusUnprocessableEntity, ErrCodeEmptyCategory
	case errors.Is(err, service.ErrAlreadyInProgress):
		return http.StatusConflict, ErrCodeTryOnInProgress
	case errors.Is(err, service.ErrBatchFullyFailed):
		return http.StatusBadGateway, ErrCodeBatchFailed
	case errors.Is(err, service.ErrPersistenceFailed):
		return http.StatusBadGateway, ErrCodePersistenceFailed
	case errors.As(err, &genErr):
		return http.StatusBadGateway, ErrCodeGenerationFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, ErrCodeRequestCancelled
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
