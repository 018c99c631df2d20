package service

import (
	"context"
	"errors"
	"fitlook/internal/llm"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEditServiceEdit(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		prompt    string
		setup     func(g *mockGateway, u *mockUploader)
		wantURL   string
		wantErrIs error
		wantGen   bool
	}{
		{
			name:   "编辑成功写入 edits 目录",
			source: "https://store.test/tryons/1.png",
			prompt: "make the sherwani maroon",
			setup: func(g *mockGateway, u *mockUploader) {
				g.On("EditImage", mock.Anything, "https://store.test/tryons/1.png", "make the sherwani maroon").
					Return(&llm.GeneratedImage{Data: []byte("edited"), MimeType: "image/png"}, nil)
				u.On("Upload", mock.Anything, []byte("edited"), "image/png", FolderEdits).Return("https://store.test/edits/2.png", nil)
			},
			wantURL: "https://store.test/edits/2.png",
		},
		{
			name:      "缺少提示词",
			source:    "https://store.test/a.png",
			prompt:    " ",
			setup:     func(*mockGateway, *mockUploader) {},
			wantErrIs: ErrInvalidSelection,
		},
		{
			name:   "模型失败",
			source: "https://store.test/a.png",
			prompt: "brighter",
			setup: func(g *mockGateway, u *mockUploader) {
				g.On("EditImage", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("blocked"))
			},
			wantGen: true,
		},
		{
			name:   "上传失败",
			source: "https://store.test/a.png",
			prompt: "brighter",
			setup: func(g *mockGateway, u *mockUploader) {
				g.On("EditImage", mock.Anything, mock.Anything, mock.Anything).
					Return(&llm.GeneratedImage{Data: []byte("x"), MimeType: "image/jpeg"}, nil)
				u.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("denied"))
			},
			wantErrIs: ErrPersistenceFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &mockGateway{}
			uploader := &mockUploader{}
			tt.setup(gateway, uploader)

			url, err := NewEditService(gateway, uploader).Edit(context.Background(), "shop-1", tt.source, tt.prompt)
			switch {
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantGen:
				var genErr *GenerationError
				assert.ErrorAs(t, err, &genErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, url)
			}
		})
	}
}
