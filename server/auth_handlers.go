package server

import (
	"net/http"

	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginHandler authenticates a user and optionally sets the remember cookie
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.auth.Login(req.Username, req.Password, req.RememberMe)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "incorrect username or password")
				return
			}
			log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if result.RememberToken != "" {
			setRememberCookies(w, s.config, result.RememberToken, isSecureRequest(r))
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// AutoLoginHandler restores a session from the HTTP-only remember cookie
func (s *Server) AutoLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(RememberCookie)
		if err != nil || cookie.Value == "" {
			// Also clears any orphaned marker so clients stop retrying
			clearRememberCookies(w, isSecureRequest(r))
			writeError(w, http.StatusUnauthorized, "no remember token")
			return
		}

		result, err := s.auth.AutoLogin(cookie.Value)
		if err != nil {
			clearRememberCookies(w, isSecureRequest(r))
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// MeHandler returns the user resolved by the bearer middleware
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// LogoutHandler revokes the remember token server-side and expires both
// cookies. Always succeeds: a failed revoke is logged, not surfaced, since
// the cookies are cleared either way.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rememberToken string
		if cookie, err := r.Cookie(RememberCookie); err == nil {
			rememberToken = cookie.Value
		}

		if err := s.auth.Logout(rememberToken); err != nil {
			log.Error().Err(err).Msg("remember token revoke failed")
		}

		clearRememberCookies(w, isSecureRequest(r))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// RegisterHandler creates a new account and returns its one-time recovery code
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username, email and password are required")
			return
		}

		result, err := s.auth.Register(req.Username, req.Email, req.FullName, req.Password)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrUsernameTaken), apperrors.Is(err, apperrors.ErrEmailTaken):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler triggers out-of-band recovery code delivery.
// The response is identical whether or not the account exists.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := s.auth.ForgotPassword(req.Email); err != nil {
			// Still opaque to the caller
			log.Error().Err(err).Msg("forgot password failed")
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a recovery code has been sent"})
	}
}

// VerifyRecoveryCodeRequest is the body of POST /auth/verify-recovery-code
type VerifyRecoveryCodeRequest struct {
	Email        string `json:"email"`
	RecoveryCode string `json:"recovery_code"`
}

// VerifyRecoveryCodeHandler checks a recovery code before the reset step
func (s *Server) VerifyRecoveryCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRecoveryCodeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := s.auth.VerifyRecoveryCode(req.Email, req.RecoveryCode); err != nil {
			if apperrors.Is(err, apperrors.ErrRecoveryCodeLocked) {
				writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid code")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Verified"})
	}
}

// ResetPasswordRequest is the body of POST /auth/reset-password
type ResetPasswordRequest struct {
	Email              string `json:"email"`
	RecoveryCode       string `json:"recovery_code"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ResetPasswordHandler sets a new password gated by the recovery code
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := s.auth.ResetPassword(req.Email, req.RecoveryCode, req.NewPassword, req.ConfirmNewPassword)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrRecoveryCodeLocked):
				writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
			case apperrors.Is(err, apperrors.ErrPasswordMismatch):
				writeError(w, http.StatusBadRequest, "passwords do not match")
			case apperrors.Is(err, apperrors.ErrInvalidRecoveryCode):
				writeError(w, http.StatusBadRequest, "invalid request")
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
	}
}
