package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/internal/credentials"
)

// VerifyEmail consumes a verification token and marks its account verified.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (User, error) {
	email, ok := e.verifications.Consume(token)
	if !ok {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return User{}, ErrVerificationTokenInvalid
	}

	user, ok := e.users.FindByEmail(ctx, email)
	if !ok {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return User{}, ErrVerificationTokenInvalid
	}

	verified := true
	updated, err := e.users.Update(ctx, user.ID, credentials.Patch{EmailVerified: &verified})
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return User{}, ErrVerificationTokenInvalid
		}
		return User{}, serverError(err)
	}

	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.record(ctx, EventEmailVerified, updated.Email, updated.ID, true)
	return updated, nil
}

// ResendVerification issues a fresh token for an unverified account,
// invalidating the previous one. Unknown and verified addresses are ignored
// without error.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	user, ok := e.users.FindByEmail(ctx, normalizeEmail(email))
	if !ok || user.EmailVerified {
		return nil
	}
	return e.sendVerification(ctx, user.Email)
}
