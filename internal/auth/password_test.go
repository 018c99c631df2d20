package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("  S3curePass!  ")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	tests := []struct {
		name      string
		candidate string
		wantErr   error
	}{
		{name: "正确密码", candidate: "S3curePass!"},
		{name: "忽略首尾空白", candidate: " S3curePass! "},
		{name: "错误密码", candidate: "wrong-password", wantErr: ErrPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(hash, tt.candidate)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	for _, password := range []string{"", "       ", "short", "  seven7  "} {
		_, err := HashPassword(password)
		assert.ErrorIs(t, err, ErrPasswordTooShort, password)
	}
}

func TestVerifyPasswordEmptyHash(t *testing.T) {
	assert.Error(t, VerifyPassword("", "whatever-pass"))
}
