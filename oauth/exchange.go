package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HTTPExchanger performs the token and userinfo round trips over HTTP.
type HTTPExchanger struct {
	client *http.Client
}

// NewHTTPExchanger uses client, or a 30 second timeout client when nil.
func NewHTTPExchanger(client *http.Client) *HTTPExchanger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPExchanger{client: client}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

func (x *HTTPExchanger) Exchange(ctx context.Context, p Provider, code string) (Identity, error) {
	if code == "" {
		return Identity{}, ErrMissingCode
	}
	access, err := x.token(ctx, p, code)
	if err != nil {
		return Identity{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Accept", "application/json")

	body, err := x.do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("oauth: userinfo: %w", err)
	}
	return parseIdentity(p.Name, body)
}

func (x *HTTPExchanger) token(ctx context.Context, p Provider, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	form.Set("code", code)
	if p.RedirectURL != "" {
		form.Set("redirect_uri", p.RedirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oauth: token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := x.do(req)
	if err != nil {
		return "", fmt.Errorf("oauth: token exchange: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("oauth: parse token response: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("oauth: token exchange: %s: %s", tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("oauth: token exchange: empty access token")
	}
	return tr.AccessToken, nil
}

func (x *HTTPExchanger) do(req *http.Request) ([]byte, error) {
	resp, err := x.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func parseIdentity(provider string, data []byte) (Identity, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Identity{}, fmt.Errorf("oauth: parse userinfo: %w", err)
	}

	id := Identity{Provider: provider}
	switch provider {
	case "google":
		id.Subject = str(raw, "id")
		id.Email = str(raw, "email")
		id.EmailVerified = boolean(raw, "verified_email")
		id.Name = str(raw, "name")
		id.AvatarURL = str(raw, "picture")
	case "github":
		if v, ok := raw["id"]; ok && v != nil {
			id.Subject = fmt.Sprintf("%v", v)
		}
		id.Email = str(raw, "email")
		id.EmailVerified = id.Email != ""
		id.Name = str(raw, "name")
		if id.Name == "" {
			id.Name = str(raw, "login")
		}
		id.AvatarURL = str(raw, "avatar_url")
	default:
		id.Subject = str(raw, "sub")
		if id.Subject == "" {
			id.Subject = str(raw, "id")
		}
		id.Email = str(raw, "email")
		id.EmailVerified = boolean(raw, "email_verified")
		id.Name = str(raw, "name")
		id.AvatarURL = str(raw, "picture")
	}

	if id.Subject == "" {
		return Identity{}, ErrNoSubject
	}
	if id.Email == "" {
		return Identity{}, ErrNoEmail
	}
	return id, nil
}

func str(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}
