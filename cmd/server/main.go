package main

import (
	"context"
	"fitlook/internal/api"
	"fitlook/internal/config"
	"fitlook/internal/llm"
	"fitlook/internal/model"
	"fitlook/internal/storage"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}
	if repo == nil {
		logrus.Error("DBType is empty, a repository is required")
		return
	}

	if err := model.SeedDefaults(context.Background(), repo, cfg); err != nil {
		logrus.WithError(err).Warn("failed to seed defaults")
	}

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}
	uploader, err := storage.NewUploader(backend, cfg.StorageBucket, cfg.StorageRootFolder)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise uploader")
		return
	}

	gateway, err := llm.NewGateway(cfg)
	if err != nil {
		logrus.WithError(err).WithField("driver", cfg.ModelDriver).Error("failed to initialise model gateway")
		return
	}

	httpHandler, err := api.NewHTTPHandler(cfg, repo, uploader, gateway)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	registerRoutes(r.Group("/api"), httpHandler)

	if localProvider, ok := backend.(storage.LocalBaseDirProvider); ok {
		publicPrefix := strings.TrimSpace(cfg.StoragePublicBaseURL)
		if publicPrefix == "" {
			publicPrefix = "/files"
		}
		if !strings.HasPrefix(publicPrefix, "http://") && !strings.HasPrefix(publicPrefix, "https://") {
			if !strings.HasPrefix(publicPrefix, "/") {
				publicPrefix = "/" + publicPrefix
			}
			r.Static(publicPrefix, localProvider.LocalBaseDir())
		}
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logger.WithField("host", serverHost).Info("服务器启动")
	// 批量试穿是同步请求，超时需覆盖整批生成
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  900 * time.Second,
		WriteTimeout: 900 * time.Second,
		IdleTimeout:  1200 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("服务器启动失败")
	}
}

func registerRoutes(apiGroup *gin.RouterGroup, h *api.HTTPHandler) {
	authGroup := apiGroup.Group("/auth")
	authGroup.GET("/status", h.AuthStatus)
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware())
	protected.GET("/catalog/options", h.ListCatalogOptions)

	garments := protected.Group("/garments")
	garments.GET("", h.ListGarments)
	garments.POST("", h.CreateGarment)
	garments.GET("/:id", h.GetGarment)
	garments.PATCH("/:id", h.UpdateGarment)
	garments.DELETE("/:id", h.DeleteGarment)

	customers := protected.Group("/customers")
	customers.GET("", h.ListCustomers)
	customers.POST("", h.CreateCustomer)
	customers.GET("/:id", h.GetCustomer)
	customers.PATCH("/:id", h.UpdateCustomer)
	customers.DELETE("/:id", h.DeleteCustomer)

	protected.POST("/uploads", h.UploadImage)

	tryon := protected.Group("/tryon")
	tryon.POST("", h.RunTryOn)
	tryon.GET("/progress", h.TryOnProgress)
	tryon.GET("/events", h.StreamTryOnEvents)
	tryon.GET("/results", h.TryOnResults)
	tryon.POST("/results/next", h.NextResult)
	tryon.POST("/results/prev", h.PrevResult)
	tryon.POST("/results/select", h.SelectResult)
	tryon.POST("/edit", h.EditImage)

	protected.GET("/history", h.ListHistory)
	protected.DELETE("/history/:id", h.DeleteHistory)
	protected.GET("/usage", h.GetUsage)

	admin := protected.Group("/admin")
	admin.Use(h.RequireAdmin())
	admin.GET("/overview", h.AdminOverview)
	admin.POST("/shops", h.CreateShop)
	admin.PATCH("/shops/:id", h.UpdateShop)
	admin.GET("/settings/:key", h.GetSetting)
	admin.PUT("/settings/:key", h.UpdateSetting)
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
