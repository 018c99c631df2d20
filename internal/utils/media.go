package utils

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// DefaultImageMime 未知类型的图片按 jpeg 处理
const DefaultImageMime = "image/jpeg"

func EnsureDataURL(value string) string {
	if strings.HasPrefix(value, "data:") {
		return value
	}
	return "data:" + DefaultImageMime + ";base64," + value
}

func SplitDataURL(value string) (string, string) {
	if !strings.HasPrefix(value, "data:") {
		return DefaultImageMime, value
	}

	value = strings.TrimPrefix(value, "data:")
	parts := strings.SplitN(value, ";base64,", 2)
	if len(parts) != 2 {
		return DefaultImageMime, ""
	}
	return NormalizeMime(parts[0]), parts[1]
}

// BuildDataURL 将原始字节编码为 data URL。
func BuildDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", NormalizeMime(mimeType), base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURL decodes an inline base64 or data URL payload and returns
// the raw bytes together with its mime type.
func DecodeDataURL(payload string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty media payload")
	}

	mimeType, base64Payload := SplitDataURL(trimmed)
	base64Payload = strings.TrimSpace(base64Payload)
	if base64Payload == "" {
		return nil, "", fmt.Errorf("empty base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	if !strings.HasPrefix(trimmed, "data:") {
		mimeType = DetectMime(data, "")
	}
	return data, mimeType, nil
}

// NormalizeMime 去掉参数部分，空值回落为 image/jpeg。
func NormalizeMime(mimeType string) string {
	v := strings.TrimSpace(mimeType)
	if v == "" {
		return DefaultImageMime
	}
	if parsed, _, err := mime.ParseMediaType(v); err == nil {
		return strings.ToLower(parsed)
	}
	if idx := strings.Index(v, ";"); idx > 0 {
		return strings.ToLower(strings.TrimSpace(v[:idx]))
	}
	return strings.ToLower(v)
}

// DetectMime 优先使用声明的类型，若不是图片则根据内容嗅探。
func DetectMime(data []byte, declared string) string {
	if d := strings.TrimSpace(declared); d != "" {
		if normalized := NormalizeMime(d); strings.HasPrefix(normalized, "image/") {
			return normalized
		}
	}
	if len(data) == 0 {
		return DefaultImageMime
	}
	sniffed := NormalizeMime(http.DetectContentType(data))
	if !strings.HasPrefix(sniffed, "image/") {
		return DefaultImageMime
	}
	return sniffed
}

func ExtensionFromMime(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	switch NormalizeMime(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/heic":
		return "heic"
	case "image/heif":
		return "heif"
	default:
		return ""
	}
}

// Truncate 按字符截断，用于日志与错误信息。
func Truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
