package auth

import (
	"errors"
	"fitlook/internal/entity"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenTTL = 24 * time.Hour
	defaultIssuer   = "fitlook"
	clockLeeway     = 30 * time.Second
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims 店铺会话令牌，Subject 即店铺用户 ID。
// Role 仅作展示，中间件每次请求都会从资料表重新读取角色。
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID 返回令牌所属用户
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// Manager 负责签发与校验 HS256 会话令牌
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewManager(secret, issuer string, ttl time.Duration) (*Manager, error) {
	key := strings.TrimSpace(secret)
	if key == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Manager{
		secret: []byte(key),
		issuer: issuer,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
		),
		now: time.Now,
	}, nil
}

// GenerateToken 为用户签发令牌，返回令牌与过期时间
func (m *Manager) GenerateToken(user *entity.DbUser, role string) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, errors.New("jwt manager is nil")
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("invalid user for token generation")
	}

	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken 校验签名、签发方与有效期。
// 过期返回 ErrTokenExpired，其余失败均包装为 ErrTokenInvalid。
func (m *Manager) ParseToken(raw string) (*Claims, error) {
	if m == nil {
		return nil, errors.New("jwt manager is nil")
	}

	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case !token.Valid || claims.UserID() == "":
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
