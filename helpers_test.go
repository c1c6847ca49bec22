package authflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/MrEthical07/authflow/mfa"
	"github.com/MrEthical07/authflow/notify"
	"github.com/MrEthical07/authflow/oauth"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	testPassword = "Secret123!"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

type testEngine struct {
	*Engine
	clock    *clock.Fake
	notifier *notify.Recorder
	totp     mfa.TOTP
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.MaxOriginAttempts = 5
	cfg.Metrics.Enabled = true
	cfg.SessionToken.Secret = testSecret
	return cfg
}

func newTestEngine(t *testing.T, mutate ...func(*Config, *Builder)) *testEngine {
	t.Helper()

	clk := clock.NewFake(testEpoch)
	rec := notify.NewRecorder()
	auth := mfa.TOTP{Issuer: "authflow-test", Clock: clk}

	cfg := testConfig()
	b := New().
		WithClock(clk).
		WithNotifier(rec).
		WithAuthenticator(auth).
		WithOAuthProvider(oauth.Google("google-client", "google-secret", "https://app.test/oauth/google/callback")).
		WithOAuthExchanger(stubExchanger("oauth-user@test.com"))
	for _, m := range mutate {
		m(&cfg, b)
	}
	b.WithConfig(cfg)

	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(e.Close)

	return &testEngine{Engine: e, clock: clk, notifier: rec, totp: auth}
}

func stubExchanger(email string) oauth.Exchanger {
	return oauth.ExchangerFunc(func(_ context.Context, p oauth.Provider, code string) (oauth.Identity, error) {
		if code == "bad" {
			return oauth.Identity{}, errors.New("exchange rejected")
		}
		return oauth.Identity{
			Provider:      p.Name,
			Subject:       "sub-" + code,
			Email:         email,
			Name:          "OAuth User",
			AvatarURL:     "https://cdn.example.com/" + p.Name + ".jpg",
			EmailVerified: true,
		}, nil
	})
}

func (te *testEngine) signUp(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := te.SignUp(context.Background(), SignUpRequest{
		Email:       email,
		Password:    testPassword,
		AcceptTerms: true,
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return res
}

// enableMFA enrolls the session's user and activates MFA with a live code.
func (te *testEngine) enableMFA(t *testing.T, accessToken string) MFASetup {
	t.Helper()
	ctx := context.Background()

	setup, err := te.EnableMFA(ctx, accessToken)
	if err != nil {
		t.Fatalf("enable mfa: %v", err)
	}
	code := te.code(t, setup.Secret)
	ok, err := te.VerifyMFA(ctx, accessToken, code)
	if err != nil || !ok {
		t.Fatalf("verify mfa: ok=%v err=%v", ok, err)
	}
	return setup
}

func (te *testEngine) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := te.totp.Code(secret)
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	return code
}

func expectCode(t *testing.T, err error, want *AuthError) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
