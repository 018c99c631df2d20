package auth

import (
	"fitlook/internal/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, secret, issuer string, ttl time.Duration) *Manager {
	t.Helper()
	mgr, err := NewManager(secret, issuer, ttl)
	require.NoError(t, err)
	return mgr
}

func TestTokenLifecycle(t *testing.T) {
	mgr := newTestManager(t, "test-secret", "issuer", 30*time.Minute)
	user := &entity.DbUser{ID: "7c1d4f0e-5b8a-4a52-9d3c-1f2e3a4b5c6d", Email: "owner@boutique.example"}

	token, expiresAt, err := mgr.GenerateToken(user, entity.ProfileRoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := mgr.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, entity.ProfileRoleAdmin, claims.Role)
	assert.Equal(t, "issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestNewManagerDefaults(t *testing.T) {
	_, err := NewManager("   ", "", time.Hour)
	assert.Error(t, err)

	mgr := newTestManager(t, "secret", " ", 0)
	assert.Equal(t, defaultIssuer, mgr.issuer)
	assert.Equal(t, defaultTokenTTL, mgr.ttl)
}

func TestGenerateTokenRejectsMissingID(t *testing.T) {
	mgr := newTestManager(t, "test-secret", "", time.Minute)
	_, _, err := mgr.GenerateToken(&entity.DbUser{Email: "x@y.z"}, entity.ProfileRoleShop)
	assert.Error(t, err)
}

func TestParseTokenFailures(t *testing.T) {
	user := &entity.DbUser{ID: "u-1", Email: "a@b.c"}

	expired := newTestManager(t, "secret", "fitlook", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, _, err := expired.GenerateToken(user, entity.ProfileRoleShop)
	require.NoError(t, err)

	foreign := newTestManager(t, "secret-a", "fitlook", time.Minute)
	foreignToken, _, err := foreign.GenerateToken(user, entity.ProfileRoleShop)
	require.NoError(t, err)

	otherIssuer := newTestManager(t, "secret", "someone-else", time.Minute)
	otherIssuerToken, _, err := otherIssuer.GenerateToken(user, entity.ProfileRoleShop)
	require.NoError(t, err)

	verifier := newTestManager(t, "secret", "fitlook", time.Minute)
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"已过期", expiredToken, ErrTokenExpired},
		{"签名密钥不同", foreignToken, ErrTokenInvalid},
		{"签发方不同", otherIssuerToken, ErrTokenInvalid},
		{"格式错误", "not-a-jwt", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.ParseToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
