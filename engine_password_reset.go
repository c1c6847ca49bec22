package authflow

import (
	"context"

	"github.com/MrEthical07/authflow/internal/tokens"
	"go.uber.org/zap"
)

// ResetPassword starts a password reset. The result is the same whether or
// not the account exists.
func (e *Engine) ResetPassword(ctx context.Context, email string) (ResetResult, error) {
	result := ResetResult{Message: resetMessage, Email: email}
	e.metrics.Inc(MetricPasswordResetRequest)

	normalized := normalizeEmail(email)
	user, ok := e.users.FindByEmail(ctx, normalized)
	if !ok {
		return result, nil
	}

	token, err := e.issuer.Generate(tokens.VerifyLength)
	if err != nil {
		return ResetResult{}, serverError(err)
	}
	e.resets.Put(token, user.Email, e.clock.Now())

	if err := e.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		e.logger.Warn("authflow: send password reset email", zap.String("email", user.Email), zap.Error(err))
	}

	e.record(ctx, EventPasswordResetRequested, user.Email, user.ID, true)
	return result, nil
}

// ConfirmPasswordReset sets a new password using a reset token.
//
// An expired token is removed before ErrResetTokenExpired is returned. A
// token rejected only for a weak password stays usable. The token is
// consumed before the new hash is written, so concurrent confirmations of
// one token succeed at most once.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	rec, ok := e.resets.Get(token)
	if !ok {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		return ErrResetTokenInvalid
	}
	if e.clock.Now().Sub(rec.CreatedAt) > e.config.PasswordReset.TokenTTL {
		e.resets.Delete(token)
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		return ErrResetTokenExpired
	}
	if !e.acceptablePassword(newPassword) {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		return ErrWeakPassword
	}

	if _, ok := e.resets.Consume(token); !ok {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		return ErrResetTokenInvalid
	}
	user, ok := e.users.FindByEmail(ctx, rec.Email)
	if !ok {
		e.metrics.Inc(MetricPasswordResetConfirmFailure)
		return ErrResetTokenInvalid
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.resets.Put(token, rec.Email, rec.CreatedAt)
		return serverError(err)
	}
	if err := e.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		e.resets.Put(token, rec.Email, rec.CreatedAt)
		return serverError(err)
	}

	e.metrics.Inc(MetricPasswordResetConfirmSuccess)
	e.record(ctx, EventPasswordResetSuccess, user.Email, user.ID, true)
	return nil
}

// UpdatePassword changes the caller's password after checking the current
// one. Accounts created through OAuth have no password and always fail the
// check.
func (e *Engine) UpdatePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}

	hash, _ := e.users.PasswordHash(ctx, user.ID)
	match, err := e.hasher.Verify(oldPassword, hash)
	if err != nil || !match {
		e.metrics.Inc(MetricPasswordChangeFailure)
		e.record(ctx, EventPasswordChanged, user.Email, user.ID, false)
		return ErrInvalidCredentials.withMessage("invalid current password")
	}
	if !e.acceptablePassword(newPassword) {
		e.metrics.Inc(MetricPasswordChangeFailure)
		return ErrWeakPassword
	}

	fresh, err := e.hasher.Hash(newPassword)
	if err != nil {
		return serverError(err)
	}
	if err := e.users.SetPasswordHash(ctx, user.ID, fresh); err != nil {
		return serverError(err)
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.record(ctx, EventPasswordChanged, user.Email, user.ID, true)
	return nil
}
