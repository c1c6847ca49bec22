package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/avatar"
	"github.com/MrEthical07/authflow/internal/credentials"
	"github.com/MrEthical07/authflow/internal/tokens"
	"github.com/MrEthical07/authflow/session"
	"go.uber.org/zap"
)

const emailProvider = "email"

// SignUp registers a password account and signs it in.
//
// Checks run in a fixed order: email format, uniqueness, password policy,
// then terms acceptance. The first failing check decides the error.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	name := sanitizeInput(req.Name)

	if !validEmail(email) {
		e.metrics.Inc(MetricSignUpFailure)
		return nil, ErrInvalidEmail
	}
	if _, exists := e.users.FindByEmail(ctx, email); exists {
		e.metrics.Inc(MetricSignUpFailure)
		return nil, ErrEmailAlreadyExists
	}
	if !e.acceptablePassword(req.Password) {
		e.metrics.Inc(MetricSignUpFailure)
		return nil, ErrWeakPassword
	}
	if !req.AcceptTerms {
		e.metrics.Inc(MetricSignUpFailure)
		return nil, ErrTermsNotAccepted
	}

	if name == "" {
		name = emailLocalPart(email)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metrics.Inc(MetricSignUpFailure)
		return nil, serverError(err)
	}

	user, err := e.users.Create(ctx, email, hash, credentials.NewUser{
		Name: name,
		Profile: Profile{
			MarketingConsent: req.MarketingConsent,
			Preferences: Preferences{
				Theme:              "light",
				EmailNotifications: true,
				MarketingEmails:    req.MarketingConsent,
			},
		},
	})
	if err != nil {
		e.metrics.Inc(MetricSignUpFailure)
		if errors.Is(err, credentials.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, serverError(err)
	}

	if err := e.sendVerification(ctx, user.Email); err != nil {
		return nil, err
	}

	s, err := e.issueSession(ctx, user.ID, session.IssueOptions{})
	if err != nil {
		return nil, err
	}
	e.links.Link(user.ID, emailProvider)

	e.metrics.Inc(MetricSignUpSuccess)
	e.record(ctx, EventUserRegistered, user.Email, user.ID, true)

	return &AuthResult{User: user, Session: s}, nil
}

// CurrentUser returns the account behind accessToken.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (User, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	return user, err
}

// UpdateProfile applies the non-nil fields of upd to the caller's account.
// Name, bio, company and location are stripped of markup; the website is
// stored as given.
func (e *Engine) UpdateProfile(ctx context.Context, accessToken string, upd ProfileUpdate) (User, error) {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return User{}, err
	}

	patch := credentials.Patch{
		Name:        sanitized(upd.Name),
		Bio:         sanitized(upd.Bio),
		Company:     sanitized(upd.Company),
		Location:    sanitized(upd.Location),
		Website:     upd.Website,
		Preferences: upd.Preferences,
	}
	updated, err := e.users.Update(ctx, user.ID, patch)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, serverError(err)
	}
	return updated, nil
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// UploadAvatar stores an image and points the caller's avatar at it. Size and
// type are checked before the caller is authenticated.
func (e *Engine) UploadAvatar(ctx context.Context, accessToken string, up AvatarUpload) (User, error) {
	switch err := avatar.Validate(int64(len(up.Data)), up.ContentType, e.config.Avatar.MaxBytes); {
	case errors.Is(err, avatar.ErrTooLarge):
		return User{}, ErrFileTooLarge
	case errors.Is(err, avatar.ErrInvalidType):
		return User{}, ErrInvalidFileType
	case err != nil:
		return User{}, serverError(err)
	}

	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return User{}, err
	}

	key := avatar.ObjectKey(user.ID, up.ContentType, e.clock.Now())
	url, err := e.avatars.Put(ctx, key, up.ContentType, up.Data)
	if err != nil {
		return User{}, serverError(err)
	}

	updated, err := e.users.Update(ctx, user.ID, credentials.Patch{AvatarURL: &url})
	if err != nil {
		e.removeAvatar(ctx, url)
		if errors.Is(err, credentials.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, serverError(err)
	}

	if user.AvatarURL != "" && user.AvatarURL != url {
		e.removeAvatar(ctx, user.AvatarURL)
	}
	e.metrics.Inc(MetricAvatarUploaded)
	return updated, nil
}

// removeAvatar deletes an avatar object we own. URLs outside the storage
// base (OAuth provider pictures) are left alone.
func (e *Engine) removeAvatar(ctx context.Context, url string) {
	key, ok := e.avatars.KeyFromURL(url)
	if !ok {
		return
	}
	if err := e.avatars.Delete(ctx, key); err != nil {
		e.logger.Warn("authflow: delete avatar", zap.String("key", key), zap.Error(err))
	}
}

// DeleteAccount removes the caller's account and everything keyed by it:
// sessions and refresh tokens, MFA state, OAuth links, and pending
// verification and reset tokens. The calling session ends with it.
func (e *Engine) DeleteAccount(ctx context.Context, accessToken string) error {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := e.users.Delete(ctx, user.ID); err != nil {
		return serverError(err)
	}
	e.mfa.Forget(user.ID)
	e.links.Forget(user.ID)
	e.verifications.DeleteEmail(user.Email)
	e.resets.DeleteEmail(user.Email)

	if user.AvatarURL != "" {
		e.removeAvatar(ctx, user.AvatarURL)
	}

	_, ended, err := e.sessions.End(ctx, accessToken)
	if err != nil {
		return serverError(err)
	}
	n, err := e.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return serverError(err)
	}
	if ended {
		n++
	}
	for i := 0; i < n; i++ {
		e.metrics.Inc(MetricSessionRevoked)
	}

	e.metrics.Inc(MetricAccountDeleted)
	e.record(ctx, EventAccountDeleted, user.Email, user.ID, true)
	return nil
}

// sendVerification replaces any pending verification token for email and
// hands the new one to the notifier. Delivery failures are logged only.
func (e *Engine) sendVerification(ctx context.Context, email string) error {
	token, err := e.issuer.Generate(tokens.VerifyLength)
	if err != nil {
		return serverError(err)
	}
	e.verifications.Put(email, token)

	if err := e.notifier.SendVerification(ctx, email, token); err != nil {
		e.logger.Warn("authflow: send verification email", zap.String("email", email), zap.Error(err))
	}
	return nil
}
