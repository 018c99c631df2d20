package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderLoggerFields(t *testing.T) {
	ctx := ContextWithShop(context.Background(), " shop-1 ")
	entry := providerLogger(ctx, DriverGemini, " gemini-2.5-flash-image ")

	assert.Equal(t, DriverGemini, entry.Data["driver"])
	assert.Equal(t, "gemini-2.5-flash-image", entry.Data["model"])
	assert.Equal(t, "shop-1", entry.Data["shop_id"])

	bare := providerLogger(context.Background(), DriverVolcengine, "")
	assert.NotContains(t, bare.Data, "model")
	assert.NotContains(t, bare.Data, "shop_id")
}

func TestLogSnippet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "空值", input: "   ", want: ""},
		{name: "短文本", input: " keep the pose ", want: "keep the pose"},
		{name: "长文本截断", input: strings.Repeat("界", logSnippetLimit+5), want: strings.Repeat("界", logSnippetLimit) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logSnippet(tt.input))
		})
	}
}
