package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/pkg/errors"
)

// Auth endpoint paths, matching the token issuer's route table.
const (
	pathLogin              = "/auth/login"
	pathAutoLogin          = "/auth/auto-login"
	pathMe                 = "/auth/me"
	pathLogout             = "/auth/logout"
	pathRegister           = "/auth/register"
	pathForgotPassword     = "/auth/forgot-password"
	pathVerifyRecoveryCode = "/auth/verify-recovery-code"
	pathResetPassword      = "/auth/reset-password"
)

// loginResponse is the issuer's reply to login and auto-login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

// RegisterResult is the issuer's reply to register: the created user plus
// the recovery code, shown exactly once.
type RegisterResult struct {
	User         *User  `json:"user"`
	RecoveryCode string `json:"recovery_code"`
}

// StatusError is a non-2xx reply from the issuer, carrying the HTTP status
// and the server's detail message.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// api issues the raw HTTP calls. All requests go through the client's
// intercepting transport, so bearer attachment and 401 healing apply to
// bearer-authenticated endpoints automatically.
type api struct {
	baseURL *url.URL
	http    *http.Client
}

func (a *api) login(ctx context.Context, username, password string, rememberMe bool) (*loginResponse, error) {
	body := map[string]any{
		"username":    username,
		"password":    password,
		"remember_me": rememberMe,
	}
	var resp loginResponse
	if err := a.call(ctx, http.MethodPost, pathLogin, body, &resp); err != nil {
		if statusOf(err) == http.StatusUnauthorized {
			return nil, errors.Wrap(apperrors.ErrInvalidCredentials, detailOf(err))
		}
		return nil, err
	}
	return &resp, nil
}

func (a *api) autoLogin(ctx context.Context) (*loginResponse, error) {
	var resp loginResponse
	if err := a.call(ctx, http.MethodPost, pathAutoLogin, nil, &resp); err != nil {
		if statusOf(err) == http.StatusUnauthorized {
			return nil, errors.Wrap(apperrors.ErrInvalidToken, detailOf(err))
		}
		return nil, err
	}
	return &resp, nil
}

func (a *api) me(ctx context.Context) (*User, error) {
	var user User
	if err := a.call(ctx, http.MethodGet, pathMe, nil, &user); err != nil {
		if statusOf(err) == http.StatusUnauthorized {
			return nil, errors.Wrap(apperrors.ErrUnauthorized, detailOf(err))
		}
		return nil, err
	}
	return &user, nil
}

func (a *api) logout(ctx context.Context) error {
	return a.call(ctx, http.MethodPost, pathLogout, nil, nil)
}

func (a *api) register(ctx context.Context, username, email, fullName, password string) (*RegisterResult, error) {
	body := map[string]any{
		"username":  username,
		"email":     email,
		"full_name": fullName,
		"password":  password,
	}
	var resp RegisterResult
	if err := a.call(ctx, http.MethodPost, pathRegister, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *api) forgotPassword(ctx context.Context, email string) error {
	return a.call(ctx, http.MethodPost, pathForgotPassword, map[string]any{"email": email}, nil)
}

func (a *api) verifyRecoveryCode(ctx context.Context, email, code string) error {
	body := map[string]any{"email": email, "recovery_code": code}
	if err := a.call(ctx, http.MethodPost, pathVerifyRecoveryCode, body, nil); err != nil {
		switch statusOf(err) {
		case http.StatusTooManyRequests:
			return errors.Wrap(apperrors.ErrRecoveryCodeLocked, detailOf(err))
		case http.StatusBadRequest:
			return errors.Wrap(apperrors.ErrInvalidRecoveryCode, detailOf(err))
		}
		return err
	}
	return nil
}

func (a *api) resetPassword(ctx context.Context, email, code, newPassword, confirmNewPassword string) error {
	body := map[string]any{
		"email":                email,
		"recovery_code":        code,
		"new_password":         newPassword,
		"confirm_new_password": confirmNewPassword,
	}
	if err := a.call(ctx, http.MethodPost, pathResetPassword, body, nil); err != nil {
		switch statusOf(err) {
		case http.StatusTooManyRequests:
			return errors.Wrap(apperrors.ErrRecoveryCodeLocked, detailOf(err))
		case http.StatusBadRequest:
			return errors.Wrap(apperrors.ErrInvalidRecoveryCode, detailOf(err))
		}
		return err
	}
	return nil
}

// call runs one JSON request/response cycle. Non-2xx replies become a
// *StatusError so callers can branch on the HTTP status; transport-level
// failures are returned wrapped and match no status.
func (a *api) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[api.call] marshal %s", path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return errors.Wrapf(err, "[api.call] new request %s", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[api.call] %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "[api.call] decode %s", path)
		}
	}
	return nil
}

func decodeDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}

func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func detailOf(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return err.Error()
}
