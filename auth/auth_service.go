package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/labtrack/labtrack-auth/internal/config"
	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/labtrack/labtrack-auth/token"
	"github.com/labtrack/labtrack-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const recoveryCodeDigits = 4

// CodeSender delivers a recovery code to the user out-of-band (email, SMS).
// The HTTP response never carries the code so account existence cannot be
// enumerated through the forgot-password endpoint.
type CodeSender func(email, code string) error

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users users.UserRepo // Repository for user data
}

// Service validates credentials and mints access and remember tokens.
type Service struct {
	repos    Repos
	tokens   *token.Creator          // Creates and validates access tokens
	remember *token.RememberManager  // Issues and revokes remember tokens
	config   config.TokenConfig
	sendCode CodeSender
	nowTime  func() time.Time // nowTime function (injectable for testing)
	log      zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithCodeSender sets the out-of-band recovery code delivery hook
func WithCodeSender(sender CodeSender) ServiceOption {
	return func(s *Service) {
		s.sendCode = sender
	}
}

// WithLogger sets the service logger
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(repos Repos, cfg config.TokenConfig, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}

	service := &Service{
		repos:    repos,
		tokens:   token.NewCreator(cfg),
		remember: token.NewRememberManager(repos.Users, cfg),
		config:   cfg,
		nowTime:  time.Now,
		log:      zerolog.Nop(),
	}
	service.sendCode = func(email, code string) error {
		service.log.Debug().Str("email", email).Msg("recovery code generated (no sender configured)")
		return nil
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// LoginResult carries the freshly minted credentials for a login or auto-login.
type LoginResult struct {
	AccessToken   string      `json:"access_token"`
	TokenType     string      `json:"token_type"`
	User          *users.User `json:"user"`
	RememberToken string      `json:"-"` // Delivered only as an HTTP-only cookie, never in the body
}

// RegisterResult carries the created user and the one-time recovery code,
// shown exactly once at registration.
type RegisterResult struct {
	User         *users.User `json:"user"`
	RecoveryCode string      `json:"recovery_code"`
}

// Register creates a new user account and issues its initial recovery code.
func (s *Service) Register(username, email, fullName, password string) (*RegisterResult, error) {
	if _, err := s.repos.Users.GetByUsername(username); err == nil {
		return nil, apperrors.ErrUsernameTaken
	} else if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, errors.Wrap(err, "[Service.Register] GetByUsername")
	}
	if _, err := s.repos.Users.GetByEmail(email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, errors.Wrap(err, "[Service.Register] GetByEmail")
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] HashPassword")
	}

	recoveryCode, err := generateRecoveryCode()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] generateRecoveryCode")
	}

	user := &users.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		RecoveryCode: recoveryCode,
		Active:       true,
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Register] Upsert")
	}

	s.log.Info().Str("username", username).Msg("user registered")
	return &RegisterResult{User: user, RecoveryCode: recoveryCode}, nil
}

// Login checks the credentials and mints a short-lived access token.
// When rememberMe is set, a long-lived remember token is issued as well;
// the caller is responsible for delivering it as an HTTP-only cookie.
// All credential failures collapse into ErrInvalidCredentials so the
// response gives no oracle on which part was wrong.
func (s *Service) Login(username, password string, rememberMe bool) (*LoginResult, error) {
	user, err := s.repos.Users.GetByUsername(username)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] CreateAccessToken")
	}

	result := &LoginResult{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        user,
	}

	if rememberMe {
		rememberToken, err := s.remember.Issue(user)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.Login] remember.Issue")
		}
		result.RememberToken = rememberToken
	}

	s.log.Info().Str("username", username).Bool("remember", rememberMe).Msg("user logged in")
	return result, nil
}

// AutoLogin silently re-establishes a session from a remember token.
func (s *Service) AutoLogin(rememberToken string) (*LoginResult, error) {
	user, err := s.remember.Resolve(rememberToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.AutoLogin] CreateAccessToken")
	}

	s.log.Info().Str("username", user.Username).Msg("auto-login")
	return &LoginResult{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Me resolves an access token to its user.
func (s *Service) Me(accessToken string) (*users.User, error) {
	username, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetByUsername(username)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	if !user.Active {
		return nil, apperrors.ErrUserInactive
	}
	return user, nil
}

// Logout revokes the remember token server-side. Idempotent: logging out
// with no token, or with one already revoked, succeeds.
func (s *Service) Logout(rememberToken string) error {
	if err := s.remember.Revoke(rememberToken); err != nil {
		return errors.Wrap(err, "[Service.Logout] remember.Revoke")
	}
	return nil
}

// ForgotPassword regenerates the recovery code for an account and hands it
// to the configured sender. The error result is identical whether or not the
// email exists, so callers cannot enumerate accounts.
func (s *Service) ForgotPassword(email string) error {
	user, err := s.repos.Users.GetByEmail(email)
	if err != nil {
		return nil // opaque: unknown emails get the same acknowledgement
	}

	code, err := generateRecoveryCode()
	if err != nil {
		return errors.Wrap(err, "[Service.ForgotPassword] generateRecoveryCode")
	}
	user.RecoveryCode = code
	user.RecoveryAttempts = 0
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ForgotPassword] Upsert")
	}

	if err := s.sendCode(user.Email, code); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("recovery code delivery failed")
	}
	return nil
}

// VerifyRecoveryCode checks a recovery code against the account. After
// too many failed attempts the code is locked until a new one is requested.
func (s *Service) VerifyRecoveryCode(email, code string) error {
	_, _, err := s.checkRecoveryCode(email, code)
	return err
}

// ResetPassword sets a new password after a recovery code check. On success
// the recovery code is rotated and any remember token is revoked, forcing a
// fresh login everywhere.
func (s *Service) ResetPassword(email, code, newPassword, confirmNewPassword string) error {
	if newPassword != confirmNewPassword {
		return apperrors.ErrPasswordMismatch
	}

	user, _, err := s.checkRecoveryCode(email, code)
	if err != nil {
		return err
	}

	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	passwordHash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] HashPassword")
	}

	newCode, err := generateRecoveryCode()
	if err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] generateRecoveryCode")
	}

	user.PasswordHash = passwordHash
	user.RecoveryCode = newCode // rotate so the old code cannot be replayed
	user.RecoveryAttempts = 0
	user.RememberToken = ""
	user.TokenExpiry = time.Time{}
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ResetPassword] Upsert")
	}

	s.log.Info().Str("username", user.Username).Msg("password reset")
	return nil
}

// checkRecoveryCode validates the code for the account, counting failures.
func (s *Service) checkRecoveryCode(email, code string) (*users.User, bool, error) {
	user, err := s.repos.Users.GetByEmail(email)
	if err != nil {
		return nil, false, apperrors.ErrInvalidRecoveryCode
	}
	if user.RecoveryCode == "" {
		return nil, false, apperrors.ErrInvalidRecoveryCode
	}
	if user.RecoveryAttempts >= s.config.GetMaxRecoveryAttempts() {
		return nil, true, apperrors.ErrRecoveryCodeLocked
	}

	if subtle.ConstantTimeCompare([]byte(user.RecoveryCode), []byte(code)) != 1 {
		user.RecoveryAttempts++
		if err := s.repos.Users.Upsert(user); err != nil {
			return nil, false, errors.Wrap(err, "[Service.checkRecoveryCode] Upsert")
		}
		if user.RecoveryAttempts >= s.config.GetMaxRecoveryAttempts() {
			return nil, true, apperrors.ErrRecoveryCodeLocked
		}
		return nil, false, apperrors.ErrInvalidRecoveryCode
	}
	return user, false, nil
}

func generateRecoveryCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < recoveryCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", recoveryCodeDigits, n), nil
}
