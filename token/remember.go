package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/labtrack/labtrack-auth/internal/config"
	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/labtrack/labtrack-auth/users"
	"github.com/pkg/errors"
)

// RememberManager handles remember-token creation, validation, and revocation.
// Remember tokens are opaque random strings stored against the user record,
// delivered to the browser as an HTTP-only cookie.
type RememberManager struct {
	repo   users.UserRepo
	config config.TokenConfig
}

// NewRememberManager creates a new remember token manager
func NewRememberManager(repo users.UserRepo, cfg config.TokenConfig) *RememberManager {
	return &RememberManager{
		repo:   repo,
		config: cfg,
	}
}

// Issue generates a new remember token for the user and stores it.
// Any previous remember token for the user is replaced (single token per user).
func (m *RememberManager) Issue(user *users.User) (string, error) {
	tokenBytes := make([]byte, m.config.GetRememberTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[RememberManager.Issue] rand.Read")
	}

	tokenStr := base64.RawURLEncoding.EncodeToString(tokenBytes)
	user.RememberToken = tokenStr
	user.TokenExpiry = NowTimeFunc().Add(m.config.GetRememberTokenExpiry())
	if err := m.repo.Upsert(user); err != nil {
		return "", errors.Wrap(err, "[RememberManager.Issue] failed to store remember token")
	}

	return tokenStr, nil
}

// Resolve looks up the user owning a remember token. Unknown or expired
// tokens return ErrInvalidToken; inactive users are rejected the same way
// so a revoked account is indistinguishable from a bad token.
func (m *RememberManager) Resolve(tokenStr string) (*users.User, error) {
	if tokenStr == "" {
		return nil, apperrors.ErrNoRememberToken
	}
	user, err := m.repo.GetByRememberToken(tokenStr)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if !user.Active || !user.Remembered(NowTimeFunc()) {
		return nil, apperrors.ErrInvalidToken
	}
	return user, nil
}

// Revoke removes a remember token. Revoking an unknown token is a no-op.
func (m *RememberManager) Revoke(tokenStr string) error {
	if tokenStr == "" {
		return nil
	}
	user, err := m.repo.GetByRememberToken(tokenStr)
	if err != nil {
		return nil // already gone
	}
	user.RememberToken = ""
	user.TokenExpiry = time.Time{}
	if err := m.repo.Upsert(user); err != nil {
		return errors.Wrap(err, "[RememberManager.Revoke] failed to clear remember token")
	}
	return nil
}
