package llm

import (
	"context"
	"strings"

	"fitlook/internal/utils"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

type shopContextKey struct{}

// ContextWithShop 记录发起调用的店铺，模型日志会带上 shop_id。
func ContextWithShop(ctx context.Context, shopID string) context.Context {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return ctx
	}
	return context.WithValue(ctx, shopContextKey{}, shopID)
}

func shopFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	shopID, _ := ctx.Value(shopContextKey{}).(string)
	return shopID
}

func providerLogger(ctx context.Context, driver, model string) *logrus.Entry {
	fields := logrus.Fields{"driver": driver}
	if model = strings.TrimSpace(model); model != "" {
		fields["model"] = model
	}
	if shopID := shopFromContext(ctx); shopID != "" {
		fields["shop_id"] = shopID
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// logSnippet 截断长文本（提示词、URL、响应体）
func logSnippet(value string) string {
	snippet := utils.Truncate(value, logSnippetLimit)
	if len(snippet) < len(strings.TrimSpace(value)) {
		return snippet + "..."
	}
	return snippet
}
