// Package oauth builds authorization URLs for external identity providers
// and exchanges callback codes for the provider's view of the user.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrMissingCode     = errors.New("oauth: missing authorization code")
	ErrNoEmail         = errors.New("oauth: provider returned no email")
	ErrNoSubject       = errors.New("oauth: provider returned no subject")
)

// Provider is one OAuth 2.0 authorization-code endpoint set.
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// Google returns the Google endpoints with the openid profile scopes.
func Google(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// GitHub returns the GitHub endpoints.
func GitHub(clientID, clientSecret, redirectURL string) Provider {
	return Provider{
		Name:         "github",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     "https://github.com/login/oauth/access_token",
		UserInfoURL:  "https://api.github.com/user",
		RedirectURL:  redirectURL,
		Scopes:       []string{"read:user", "user:email"},
	}
}

// Validate reports a missing name, client id, or malformed endpoint.
func (p Provider) Validate() error {
	if p.Name == "" {
		return errors.New("oauth: provider name is required")
	}
	if p.ClientID == "" {
		return fmt.Errorf("oauth: %s: client id is required", p.Name)
	}
	for field, raw := range map[string]string{"auth": p.AuthURL, "token": p.TokenURL, "userinfo": p.UserInfoURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("oauth: %s: invalid %s url %q", p.Name, field, raw)
		}
	}
	return nil
}

// AuthorizationURL returns the URL the user agent is sent to. state is
// echoed back by the provider on the callback.
func (p Provider) AuthorizationURL(state string) (string, error) {
	u, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("oauth: parse auth url: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	if p.RedirectURL != "" {
		q.Set("redirect_uri", p.RedirectURL)
	}
	if len(p.Scopes) > 0 {
		q.Set("scope", strings.Join(p.Scopes, " "))
	}
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Identity is the provider's account as seen after a code exchange.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// Exchanger turns an authorization code into an Identity.
type Exchanger interface {
	Exchange(ctx context.Context, p Provider, code string) (Identity, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, p Provider, code string) (Identity, error)

func (f ExchangerFunc) Exchange(ctx context.Context, p Provider, code string) (Identity, error) {
	return f(ctx, p, code)
}
