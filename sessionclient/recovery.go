package sessionclient

import (
	"context"
	"sync"
	"unicode"

	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/pkg/errors"
)

// RecoveryStep is the position inside the password recovery conversation.
type RecoveryStep int

const (
	StepRequestCode RecoveryStep = iota
	StepVerifyCode
	StepSetPassword
	StepDone
)

func (s RecoveryStep) String() string {
	switch s {
	case StepRequestCode:
		return "request-code"
	case StepVerifyCode:
		return "verify-code"
	case StepSetPassword:
		return "set-password"
	case StepDone:
		return "done"
	}
	return "unknown"
}

const recoveryCodeLength = 4

// RecoveryFlow walks the three password recovery steps in order:
// request a code, verify it, set the new password. Each step gates the
// next; a failed verification stays on the verify step. The only state
// carried forward is the email address and, once verified, the code.
type RecoveryFlow struct {
	client *Client

	lock  sync.Mutex
	step  RecoveryStep
	email string
	code  string
}

// Step returns the current position in the flow.
func (f *RecoveryFlow) Step() RecoveryStep {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.step
}

// RequestCode asks the issuer to send a recovery code to the email.
// The issuer acknowledges identically whether or not the account exists,
// so a successful call only means the request was accepted.
func (f *RecoveryFlow) RequestCode(ctx context.Context, email string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.step != StepRequestCode {
		return errors.Errorf("[RecoveryFlow.RequestCode] not at request step (at %s)", f.step)
	}
	if email == "" {
		return errors.New("[RecoveryFlow.RequestCode] email is required")
	}

	if err := f.client.api.forgotPassword(ctx, email); err != nil {
		return err
	}
	f.email = email
	f.step = StepVerifyCode
	return nil
}

// VerifyCode checks the recovery code. Malformed codes are rejected
// locally without a network call; a server-side mismatch leaves the flow
// on this step so the user can try again.
func (f *RecoveryFlow) VerifyCode(ctx context.Context, code string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.step != StepVerifyCode {
		return errors.Errorf("[RecoveryFlow.VerifyCode] not at verify step (at %s)", f.step)
	}
	if !validRecoveryCode(code) {
		return apperrors.ErrInvalidRecoveryCode
	}

	if err := f.client.api.verifyRecoveryCode(ctx, f.email, code); err != nil {
		return err
	}
	f.code = code
	f.step = StepSetPassword
	return nil
}

// ResetPassword submits the new password. The confirmation mismatch is
// caught locally; everything else is the server's call.
func (f *RecoveryFlow) ResetPassword(ctx context.Context, newPassword, confirmNewPassword string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.step != StepSetPassword {
		return errors.Errorf("[RecoveryFlow.ResetPassword] not at password step (at %s)", f.step)
	}
	if newPassword != confirmNewPassword {
		return apperrors.ErrPasswordMismatch
	}

	if err := f.client.api.resetPassword(ctx, f.email, f.code, newPassword, confirmNewPassword); err != nil {
		return err
	}
	f.step = StepDone
	return nil
}

func validRecoveryCode(code string) bool {
	if len(code) != recoveryCodeLength {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
