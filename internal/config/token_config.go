package config

import (
	"os"
	"time"
)

type TokenConfig interface {
	GetJWTSecret() []byte
	GetAccessTokenExpiry() time.Duration
	GetRememberTokenExpiry() time.Duration
	GetRememberTokenLength() int
	GetMaxRecoveryAttempts() int
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("dev-secret-change-this-in-production")
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return 30 * time.Minute
}

func (Tokens) GetRememberTokenExpiry() time.Duration {
	return 30 * 24 * time.Hour // 30 days
}

func (Tokens) GetRememberTokenLength() int {
	return 64 // 64 bytes = 512 bits
}

func (Tokens) GetMaxRecoveryAttempts() int {
	return 5
}
