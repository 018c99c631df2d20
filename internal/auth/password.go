package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 登录密码的最短长度（按字符计）。
const MinPasswordLength = 8

var (
	// ErrPasswordTooShort 密码短于 MinPasswordLength
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrPasswordMismatch 密码与存储的哈希不匹配
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword 校验长度后生成 bcrypt 哈希，首尾空白不计入密码。
func HashPassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if utf8.RuneCountInString(trimmed) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(trimmed), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword 比对候选密码，不匹配时返回 ErrPasswordMismatch。
func VerifyPassword(hash, candidate string) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("stored password hash is empty")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(candidate)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
