package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authflow/internal/rate"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/session"
	"go.uber.org/zap"
)

// SignIn authenticates an email and password pair, plus an MFA code when the
// account has MFA enabled.
//
// The origin lock is checked before the account lock. Every rejected
// credential counts against both keys; a missing MFA code does not.
func (e *Engine) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricSignInLatency, time.Since(start))
	}()

	email := normalizeEmail(req.Email)
	ip := clientIPFromContext(ctx)

	if err := e.checkLocks(ctx, email, ip); err != nil {
		return nil, err
	}

	user, ok := e.users.FindByEmail(ctx, email)
	if !ok {
		e.signInFailed(ctx, email, "", ip)
		return nil, ErrUserNotFound
	}

	hash, _ := e.users.PasswordHash(ctx, user.ID)
	match, err := e.hasher.Verify(req.Password, hash)
	if err != nil && !errors.Is(err, password.ErrPasswordTooLong) && !errors.Is(err, password.ErrEmptyPassword) {
		e.logger.Error("authflow: verify password", zap.String("user_id", user.ID), zap.Error(err))
		e.metrics.Inc(MetricSignInFailure)
		return nil, serverError(err)
	}
	if !match {
		e.signInFailed(ctx, email, user.ID, ip)
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			e.metrics.Inc(MetricMFARequired)
			return nil, ErrMFARequired
		}
		res, err := e.mfa.Check(ctx, user.ID, req.MFACode)
		if err != nil {
			return nil, serverError(err)
		}
		if !res.OK {
			e.metrics.Inc(MetricMFAFailure)
			e.signInFailed(ctx, email, user.ID, ip)
			return nil, ErrInvalidMFACode
		}
		e.metrics.Inc(MetricMFASuccess)
		if res.BackupCode {
			e.metrics.Inc(MetricBackupCodeUsed)
		}
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, user.ID, req.Password, hash)
	}

	e.clearFailures(ctx, email, ip)

	s, err := e.issueSession(ctx, user.ID, session.IssueOptions{RememberMe: req.RememberMe})
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricSignInSuccess)
	e.record(ctx, EventLoginSuccess, user.Email, user.ID, true)

	return &AuthResult{User: user, Session: s}, nil
}

func (e *Engine) checkLocks(ctx context.Context, email, ip string) error {
	lockout := e.config.Security.LockoutDuration

	if ip != "" {
		locked, err := e.limiter.IsLocked(ctx, rate.OriginKey(ip), e.config.Security.MaxOriginAttempts, lockout)
		if err != nil {
			return serverError(err)
		}
		if locked {
			e.metrics.Inc(MetricSignInRateLimited)
			return ErrRateLimited.withMessage("too many attempts from this IP address")
		}
	}

	locked, err := e.limiter.IsLocked(ctx, rate.AccountKey(email), e.config.Security.MaxLoginAttempts, lockout)
	if err != nil {
		return serverError(err)
	}
	if locked {
		e.metrics.Inc(MetricSignInRateLimited)
		return ErrRateLimited.withMessage("account temporarily locked due to too many failed attempts")
	}
	return nil
}

func (e *Engine) signInFailed(ctx context.Context, email, userID, ip string) {
	e.recordFailure(ctx, email, ip)
	e.metrics.Inc(MetricSignInFailure)
	e.record(ctx, EventLoginFailed, email, userID, false)
}

// upgradeHash rehashes with the current parameters when the stored hash is
// weaker. Failures leave the old hash in place.
func (e *Engine) upgradeHash(ctx context.Context, userID, plain, hash string) {
	upgrade, err := e.hasher.NeedsUpgrade(hash)
	if err != nil || !upgrade {
		return
	}
	fresh, err := e.hasher.Hash(plain)
	if err != nil {
		e.logger.Warn("authflow: rehash password", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := e.users.SetPasswordHash(ctx, userID, fresh); err != nil {
		e.logger.Warn("authflow: store upgraded hash", zap.String("user_id", userID), zap.Error(err))
	}
}

// SignOut revokes the session behind accessToken together with its refresh
// token. Unknown or already revoked tokens are not an error.
func (e *Engine) SignOut(ctx context.Context, accessToken string) error {
	rec, found, err := e.sessions.End(ctx, accessToken)
	if err != nil {
		return serverError(err)
	}
	if !found {
		return nil
	}

	e.metrics.Inc(MetricSignOut)
	e.metrics.Inc(MetricSessionRevoked)

	email := ""
	if u, ok := e.users.FindByID(ctx, rec.UserID); ok {
		email = u.Email
	}
	e.record(ctx, EventLogout, email, rec.UserID, true)
	return nil
}

// RefreshSession exchanges a refresh token for a new pair. The old pair is
// invalidated atomically, so a refresh token works once.
func (e *Engine) RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error) {
	s, err := e.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		switch {
		case errors.Is(err, session.ErrRefreshNotFound):
			return nil, ErrRefreshTokenInvalid
		case errors.Is(err, session.ErrRefreshExpired):
			return nil, ErrRefreshTokenExpired
		default:
			return nil, serverError(err)
		}
	}

	user, ok := e.users.FindByID(ctx, s.UserID)
	if !ok {
		e.logger.Error("authflow: refresh token references missing user", zap.String("user_id", s.UserID))
		if err := e.sessions.Revoke(ctx, s.AccessToken); err != nil {
			e.logger.Warn("authflow: revoke orphaned session", zap.Error(err))
		}
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrUserNotFound
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.metrics.Inc(MetricSessionCreated)
	return &AuthResult{User: user, Session: s}, nil
}

// ValidateSession reports whether accessToken names a live session. Only
// backend failures are returned as errors.
func (e *Engine) ValidateSession(ctx context.Context, accessToken string) (bool, error) {
	ok, err := e.sessions.Validate(ctx, accessToken)
	if err != nil {
		return false, serverError(err)
	}
	return ok, nil
}
