package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fitlook/internal/auth"
	"fitlook/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的认证用户信息，角色来自店铺资料。
type RequestUser struct {
	ID      string
	Email   string
	Role    string
	Profile *entity.DbProfile
}

// IsAdmin 判断用户是否具有管理员权限
func (u *RequestUser) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == entity.ProfileRoleAdmin
}

// ShopID 当前用户作为店铺的 ID
func (u *RequestUser) ShopID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// AuthMiddleware JWT 认证中间件，首次访问时为用户开通店铺资料。
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := h.authManager.ParseToken(tokenString)
		if err != nil {
			if !errors.Is(err, auth.ErrTokenExpired) {
				logrus.WithError(err).WithField("client_ip", c.ClientIP()).Warn("rejected jwt token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeSessionExpired,
				Message: "Token 无效或已过期",
			})
			return
		}

		if h.repo == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, APIError{
				Code:    ErrCodeServiceUnavailable,
				Message: "用户存储不可用",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := h.repo.GetUserByID(ctx, claims.UserID())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
					Code:    ErrCodeUserNotFound,
					Message: "用户不存在",
				})
				return
			}
			logrus.WithError(err).WithField("user_id", claims.UserID()).Error("failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Code:    ErrCodeInternalError,
				Message: "验证用户失败",
			})
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Code:    ErrCodeUserDisabled,
				Message: "账户已被禁用",
			})
			return
		}

		profile, err := h.accounts.EnsureProfile(ctx, user.ID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to load profile")
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
				Code:    ErrCodeInternalError,
				Message: "加载店铺资料失败",
			})
			return
		}

		c.Set(currentUserContextKey, &RequestUser{
			ID:      user.ID,
			Email:   user.Email,
			Role:    profile.Role,
			Profile: profile,
		})
		c.Next()
	}
}

// bearerToken 读取 Authorization 头。EventSource 无法设置请求头，SSE 接口允许 access_token 查询参数。
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			return token, true
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
			Code:    ErrCodeUnauthorized,
			Message: "缺少授权头",
		})
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
			Code:    ErrCodeUnauthorized,
			Message: "无效的授权头格式",
		})
		return "", false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
			Code:    ErrCodeUnauthorized,
			Message: "缺少 Bearer Token",
		})
		return "", false
	}
	return tokenString, true
}

// RequireAdmin 管理员权限守卫中间件
func (h *HTTPHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Code:    ErrCodeForbidden,
				Message: "需要管理员权限",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
