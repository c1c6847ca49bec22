package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/mfa"
)

// EnableMFA starts enrollment for the caller and returns the secret,
// provisioning URI and backup codes. MFA is not enforced at sign-in until a
// code has been verified. A second call replaces the pending enrollment.
func (e *Engine) EnableMFA(ctx context.Context, accessToken string) (MFASetup, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return MFASetup{}, err
	}
	setup, err := e.mfa.Enroll(ctx, user.ID, user.Email)
	if err != nil {
		return MFASetup{}, serverError(err)
	}
	return setup, nil
}

// VerifyMFA checks code for the caller. The first valid code after EnableMFA
// turns MFA on for the account.
func (e *Engine) VerifyMFA(ctx context.Context, accessToken, code string) (bool, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return false, err
	}
	return e.verifyMFA(ctx, user, code)
}

// VerifyMFAForUser is VerifyMFA for callers that already established the
// user's identity. Unknown users verify as false.
func (e *Engine) VerifyMFAForUser(ctx context.Context, userID, code string) (bool, error) {
	user, ok := e.users.FindByID(ctx, userID)
	if !ok {
		return false, nil
	}
	return e.verifyMFA(ctx, user, code)
}

func (e *Engine) verifyMFA(ctx context.Context, user User, code string) (bool, error) {
	res, err := e.mfa.Check(ctx, user.ID, code)
	if err != nil {
		return false, serverError(err)
	}
	if !res.OK {
		e.metrics.Inc(MetricMFAFailure)
		return false, nil
	}

	e.metrics.Inc(MetricMFASuccess)
	if res.BackupCode {
		e.metrics.Inc(MetricBackupCodeUsed)
	}
	if res.Activated {
		e.record(ctx, EventMFAEnabled, user.Email, user.ID, true)
	}
	return true, nil
}

// DisableMFA clears the caller's secret and backup codes.
func (e *Engine) DisableMFA(ctx context.Context, accessToken string) error {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := e.mfa.Disable(ctx, user.ID); err != nil {
		return serverError(err)
	}
	e.record(ctx, EventMFADisabled, user.Email, user.ID, true)
	return nil
}

// GenerateBackupCodes replaces the caller's backup codes. It fails with
// ErrMFASetupRequired when no enrollment exists.
func (e *Engine) GenerateBackupCodes(ctx context.Context, accessToken string) ([]string, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	codes, err := e.mfa.RegenerateBackupCodes(ctx, user.ID)
	if err != nil {
		if errors.Is(err, mfa.ErrNotEnrolled) {
			return nil, ErrMFASetupRequired
		}
		return nil, serverError(err)
	}
	e.metrics.Inc(MetricBackupCodesRegenerated)
	return codes, nil
}
