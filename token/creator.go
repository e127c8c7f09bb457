package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labtrack/labtrack-auth/internal/config"
	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/labtrack/labtrack-auth/users"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator handles access token creation and validation
type Creator struct {
	config config.TokenConfig
}

// NewCreator creates a new access token creator
func NewCreator(cfg config.TokenConfig) *Creator {
	return &Creator{
		config: cfg,
	}
}

// CreateAccessToken creates a short-lived signed bearer token for the user
func (c *Creator) CreateAccessToken(user *users.User) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub": user.Username,
		"iat": now.Unix(),
		"exp": now.Add(c.config.GetAccessTokenExpiry()).Unix(),
		"jti": uuid.New().String(),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.config.GetJWTSecret())
	if err != nil {
		return "", errors.Wrap(err, "[CreateAccessToken] failed to sign token")
	}
	return signed, nil
}

// ParseAccessToken validates a bearer token and returns its subject (the username).
// Expired tokens return ErrTokenExpired; any other failure returns ErrInvalidToken.
func (c *Creator) ParseAccessToken(rawToken string) (string, error) {
	parsed, err := jwtlib.Parse(rawToken, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.config.GetJWTSecret(), nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", apperrors.ErrTokenExpired
		}
		return "", apperrors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return "", apperrors.ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", apperrors.ErrInvalidToken
	}
	return subject, nil
}
