package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/internal/credentials"
	"github.com/MrEthical07/authflow/internal/tokens"
	"github.com/MrEthical07/authflow/oauth"
	"github.com/MrEthical07/authflow/session"
	"go.uber.org/zap"
)

// OAuthAuthorizationURL returns the provider's authorize URL carrying a
// fresh single-use state.
func (e *Engine) OAuthAuthorizationURL(ctx context.Context, provider string) (string, error) {
	p, err := e.provider(provider)
	if err != nil {
		return "", err
	}

	state, err := e.issuer.Generate(tokens.StateLength)
	if err != nil {
		return "", serverError(err)
	}
	now := e.clock.Now()
	e.oauthStates.Prune(now)
	e.oauthStates.Put(state, p.Name, now.Add(e.config.OAuth.StateTTL))

	u, err := p.AuthorizationURL(state)
	if err != nil {
		return "", ErrOAuth.wrap(err)
	}
	return u, nil
}

// HandleOAuthCallback completes a provider sign-in. The account is found by
// the provider's email or created pre-verified without a password, the
// provider is linked, and a session tagged with the provider is issued.
func (e *Engine) HandleOAuthCallback(ctx context.Context, provider string, cb OAuthCallback) (*AuthResult, error) {
	ident, err := e.exchange(ctx, provider, cb)
	if err != nil {
		e.metrics.Inc(MetricOAuthFailure)
		return nil, err
	}

	email := credentials.NormalizeEmail(ident.Email)
	user, ok := e.users.FindByEmail(ctx, email)
	if !ok {
		user, err = e.createOAuthUser(ctx, email, ident)
		if err != nil {
			e.metrics.Inc(MetricOAuthFailure)
			return nil, err
		}
	}
	e.links.Link(user.ID, provider)

	s, err := e.issueSession(ctx, user.ID, session.IssueOptions{Provider: provider})
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricOAuthLogin)
	e.record(ctx, EventOAuthLogin, user.Email, user.ID, true)
	return &AuthResult{User: user, Session: s}, nil
}

func (e *Engine) createOAuthUser(ctx context.Context, email string, ident oauth.Identity) (User, error) {
	name := sanitizeInput(ident.Name)
	if name == "" {
		name = emailLocalPart(email)
	}
	user, err := e.users.Create(ctx, email, "", credentials.NewUser{
		Name:          name,
		AvatarURL:     ident.AvatarURL,
		EmailVerified: true,
		Profile: Profile{
			Preferences: Preferences{Theme: "light", EmailNotifications: true},
		},
	})
	if errors.Is(err, credentials.ErrDuplicateEmail) {
		// Lost a race with a concurrent sign-up for the same address.
		if existing, ok := e.users.FindByEmail(ctx, email); ok {
			return existing, nil
		}
	}
	if err != nil {
		return User{}, serverError(err)
	}
	return user, nil
}

// LinkOAuthAccount adds provider to the caller's linked set after the same
// code exchange a sign-in performs.
func (e *Engine) LinkOAuthAccount(ctx context.Context, accessToken, provider string, cb OAuthCallback) error {
	_, user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}
	if _, err := e.exchange(ctx, provider, cb); err != nil {
		e.metrics.Inc(MetricOAuthFailure)
		return err
	}
	e.links.Link(user.ID, provider)
	return nil
}

// LinkedProviders returns the sorted provider names linked to userID,
// including "email" for password accounts.
func (e *Engine) LinkedProviders(_ context.Context, userID string) []string {
	return e.links.Providers(userID)
}

func (e *Engine) provider(name string) (oauth.Provider, error) {
	p, ok := e.providers[name]
	if !ok {
		return oauth.Provider{}, ErrOAuth.wrap(oauth.ErrUnknownProvider)
	}
	return p, nil
}

// exchange checks the callback state and trades the code for the provider's
// identity.
func (e *Engine) exchange(ctx context.Context, provider string, cb OAuthCallback) (oauth.Identity, error) {
	p, err := e.provider(provider)
	if err != nil {
		return oauth.Identity{}, err
	}
	if e.config.OAuth.RequireState {
		if err := e.oauthStates.Consume(cb.State, p.Name, e.clock.Now()); err != nil {
			return oauth.Identity{}, ErrOAuth.wrap(err).withMessage("invalid oauth state")
		}
	}
	if cb.Code == "" {
		return oauth.Identity{}, ErrOAuth.wrap(oauth.ErrMissingCode)
	}

	ident, err := e.exchanger.Exchange(ctx, p, cb.Code)
	if err != nil {
		e.logger.Warn("authflow: oauth exchange", zap.String("provider", p.Name), zap.Error(err))
		return oauth.Identity{}, ErrOAuth.wrap(err)
	}
	if ident.Email == "" {
		return oauth.Identity{}, ErrOAuth.wrap(oauth.ErrNoEmail)
	}
	return ident, nil
}
