package api

import (
	"context"
	"encoding/json"
	"errors"
	"fitlook/internal/service"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordError(t *testing.T, write func(c *gin.Context)) (int, APIError) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)

	var response APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(c *gin.Context)
		wantStatus int
		wantCode   string
	}{
		{"参数错误", func(c *gin.Context) { BadRequest(c, ErrCodeInvalidRequest, "无效的请求") }, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"未登录", func(c *gin.Context) { Unauthorized(c, "需要登录") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"无权限", func(c *gin.Context) { Forbidden(c, "没有权限") }, http.StatusForbidden, ErrCodeForbidden},
		{"服装不存在", func(c *gin.Context) { NotFound(c, ErrCodeGarmentNotFound, "服装不存在") }, http.StatusNotFound, ErrCodeGarmentNotFound},
		{"内部错误", func(c *gin.Context) { InternalError(c, "服务器错误") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"服务不可用", func(c *gin.Context) { ServiceUnavailable(c, "服务不可用") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"缺少字段", func(c *gin.Context) { MissingField(c, "email") }, http.StatusBadRequest, ErrCodeMissingField},
		{"请求体无效", InvalidPayload, http.StatusBadRequest, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, response := recordError(t, tt.write)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, response.Code)
			assert.NotEmpty(t, response.Message)
		})
	}
}

func TestErrorResponseWithDetails(t *testing.T) {
	status, response := recordError(t, func(c *gin.Context) {
		ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, "缺少必填字段", map[string]string{"field": "email"})
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]any{"field": "email"}, response.Details)
}

func TestTryOnErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"选择无效", fmt.Errorf("%w: customer photo is required", service.ErrInvalidSelection), http.StatusBadRequest, ErrCodeInvalidSelection},
		{"分类为空", fmt.Errorf("%w: Suit", service.ErrEmptyCategory), http.StatusUnprocessableEntity, ErrCodeEmptyCategory},
		{"正在运行", service.ErrAlreadyInProgress, http.StatusConflict, ErrCodeTryOnInProgress},
		{"生成失败", &service.GenerationError{Cause: errors.New("timeout")}, http.StatusBadGateway, ErrCodeGenerationFailed},
		{"保存失败", fmt.Errorf("%w: denied", service.ErrPersistenceFailed), http.StatusBadGateway, ErrCodePersistenceFailed},
		{"批量全部失败", fmt.Errorf("%w: 2 of 2 failed", service.ErrBatchFullyFailed), http.StatusBadGateway, ErrCodeBatchFailed},
		{"请求取消", fmt.Errorf("try-on batch cancelled: %w", context.Canceled), http.StatusRequestTimeout, ErrCodeRequestCancelled},
		{"批量超时", fmt.Errorf("try-on batch cancelled: %w", context.DeadlineExceeded), http.StatusRequestTimeout, ErrCodeRequestCancelled},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, response := recordError(t, func(c *gin.Context) { TryOnError(c, tt.err, nil) })
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, response.Code)
			assert.Equal(t, tt.err.Error(), response.Message)
		})
	}
}
