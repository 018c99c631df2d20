package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fitlook/internal/utils"

	"github.com/sirupsen/logrus"
)

// maxImageBytes 单张参考图的下载上限
const maxImageBytes = 20 << 20

// PreparedMedia 已加载的图片字节与类型
type PreparedMedia struct {
	Data     []byte
	MimeType string
}

// MediaService 将图片引用（http(s) URL、data URL、本地存储的公开路径）加载为字节。
type MediaService interface {
	Load(ctx context.Context, ref string) (*PreparedMedia, error)
}

type defaultMediaService struct {
	httpClient  *http.Client
	localPrefix string
	localDir    string
}

// NewMediaService 创建 MediaService。localPrefix/localDir 用于解析本地存储返回的相对 URL（如 /files/...）。
func NewMediaService(localPrefix, localDir string) MediaService {
	prefix := strings.TrimSpace(localPrefix)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &defaultMediaService{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		localPrefix: prefix,
		localDir:    strings.TrimSpace(localDir),
	}
}

func (s *defaultMediaService) Load(ctx context.Context, ref string) (*PreparedMedia, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, errors.New("empty image reference")
	}

	switch {
	case strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://"):
		return s.download(ctx, trimmed)
	case s.localPrefix != "" && s.localDir != "" && strings.HasPrefix(trimmed, s.localPrefix):
		return s.readLocal(strings.TrimPrefix(trimmed, s.localPrefix))
	default:
		data, mimeType, err := utils.DecodeDataURL(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse inline image: %w", err)
		}
		return &PreparedMedia{Data: data, MimeType: mimeType}, nil
	}
}

func (s *defaultMediaService) download(ctx context.Context, url string) (*PreparedMedia, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("downloaded image is empty")
	}

	mimeType := utils.DetectMime(data, resp.Header.Get("Content-Type"))
	logrus.WithFields(logrus.Fields{
		"mime":       mimeType,
		"size_bytes": len(data),
		"url":        logSnippet(url),
	}).Debug("media_service: downloaded image")

	return &PreparedMedia{Data: data, MimeType: mimeType}, nil
}

func (s *defaultMediaService) readLocal(rel string) (*PreparedMedia, error) {
	cleaned := filepath.Clean("/" + rel)
	path := filepath.Join(s.localDir, filepath.FromSlash(cleaned))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local image: %w", err)
	}
	return &PreparedMedia{Data: data, MimeType: utils.DetectMime(data, "")}, nil
}
