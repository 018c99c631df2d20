package storage

import (
	"fitlook/internal/utils"
	"path"
	"strings"

	"github.com/google/uuid"
)

func sanitizePathSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	builder.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			builder.WriteByte(ch)
		case ch >= 'A' && ch <= 'Z':
			builder.WriteByte(ch + 32)
		case ch == '-', ch == '_':
			builder.WriteByte(ch)
		}
	}
	return builder.String()
}

// buildObjectKey 生成 <root>/<folder>/<uuid>.<ext>。
func buildObjectKey(root, folder, contentType string) string {
	folder = sanitizePathSegment(folder)
	if folder == "" {
		folder = "misc"
	}
	ext := utils.ExtensionFromMime(contentType)
	if ext == "" {
		ext = "bin"
	}
	filename := uuid.NewString() + "." + ext
	return joinPrefix(root, path.Join(folder, filename))
}

func joinPrefix(prefix, key string) string {
	cleanPrefix := trimPrefix(prefix)
	if cleanPrefix == "" {
		return strings.TrimLeft(key, "/")
	}
	return path.Join(cleanPrefix, strings.TrimLeft(key, "/"))
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// joinURL 拼接公开访问地址，保证只有一个分隔符。
func joinURL(base string, segments ...string) string {
	parts := []string{strings.TrimRight(strings.TrimSpace(base), "/")}
	for _, seg := range segments {
		if trimmed := strings.Trim(seg, "/"); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "/")
}

func isAbsoluteURL(value string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
