package authflow

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/password"
)

func TestSignInSuccessClearsCounters(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "alice@test.com")
	ctx := WithClientIP(context.Background(), "10.0.0.1")

	_, err := te.SignIn(ctx, SignInRequest{Email: "alice@test.com", Password: "Wrong123!"})
	expectCode(t, err, ErrInvalidCredentials)
	if n, _ := te.LoginAttempts(ctx, "alice@test.com"); n != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", n)
	}

	res, err := te.SignIn(ctx, SignInRequest{Email: "ALICE@test.com", Password: testPassword, RememberMe: true})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !res.Session.RememberMe {
		t.Fatal("expected RememberMe to be carried on the session")
	}
	if n, _ := te.LoginAttempts(ctx, "alice@test.com"); n != 0 {
		t.Fatalf("expected counter cleared, got %d", n)
	}

	log := te.SecurityLog(ctx, "alice@test.com")
	last := log[len(log)-1]
	if last.Event != EventLoginSuccess || last.IP != "10.0.0.1" {
		t.Fatalf("unexpected last entry: %+v", last)
	}
	if log[len(log)-2].Event != EventLoginFailed || log[len(log)-2].Success {
		t.Fatalf("expected failed attempt to be logged: %+v", log[len(log)-2])
	}
}

func TestSignInUnknownUserRecordsFailure(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	_, err := te.SignIn(ctx, SignInRequest{Email: "ghost@test.com", Password: testPassword})
	expectCode(t, err, ErrUserNotFound)

	if n, _ := te.LoginAttempts(ctx, "ghost@test.com"); n != 1 {
		t.Fatalf("expected failure recorded for unknown account, got %d", n)
	}
}

func TestSignInLockoutAndRecovery(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "lock@test.com")
	ctx := context.Background()

	for i := 0; i < te.config.Security.MaxLoginAttempts; i++ {
		_, err := te.SignIn(ctx, SignInRequest{Email: "lock@test.com", Password: "Wrong123!"})
		expectCode(t, err, ErrInvalidCredentials)
	}

	_, err := te.SignIn(ctx, SignInRequest{Email: "lock@test.com", Password: testPassword})
	expectCode(t, err, ErrRateLimited)
	if StatusCode(err) != 429 {
		t.Fatalf("expected 429 hint, got %d", StatusCode(err))
	}

	te.clock.Advance(te.config.Security.LockoutDuration - time.Second)
	_, err = te.SignIn(ctx, SignInRequest{Email: "lock@test.com", Password: testPassword})
	expectCode(t, err, ErrRateLimited)

	te.clock.Advance(2 * time.Second)
	if _, err := te.SignIn(ctx, SignInRequest{Email: "lock@test.com", Password: testPassword}); err != nil {
		t.Fatalf("expected sign-in after lockout window: %v", err)
	}
}

func TestSignInOriginLockCheckedFirst(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "victim@test.com")
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	// Spread failures across accounts so only the origin counter trips.
	for i := 0; i < te.config.Security.MaxOriginAttempts; i++ {
		_, _ = te.SignIn(ctx, SignInRequest{Email: "nobody" + string(rune('a'+i)) + "@test.com", Password: "x"})
	}

	_, err := te.SignIn(ctx, SignInRequest{Email: "victim@test.com", Password: testPassword})
	expectCode(t, err, ErrRateLimited)

	other := WithClientIP(context.Background(), "198.51.100.1")
	if _, err := te.SignIn(other, SignInRequest{Email: "victim@test.com", Password: testPassword}); err != nil {
		t.Fatalf("expected another origin to be unaffected: %v", err)
	}
}

func TestSignInOverlongPasswordIsInvalidCredentials(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "long@test.com")

	long := make([]byte, password.DefaultMaxPasswordBytes+1)
	for i := range long {
		long[i] = 'A'
	}
	_, err := te.SignIn(context.Background(), SignInRequest{Email: "long@test.com", Password: string(long)})
	expectCode(t, err, ErrInvalidCredentials)
}

func TestSignInMFARequiredAndCode(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "mfa@test.com")
	setup := te.enableMFA(t, res.Session.AccessToken)
	ctx := context.Background()

	_, err := te.SignIn(ctx, SignInRequest{Email: "mfa@test.com", Password: testPassword})
	expectCode(t, err, ErrMFARequired)
	if n, _ := te.LoginAttempts(ctx, "mfa@test.com"); n != 0 {
		t.Fatalf("missing code must not count as a failure, got %d", n)
	}

	_, err = te.SignIn(ctx, SignInRequest{Email: "mfa@test.com", Password: testPassword, MFACode: "000000"})
	expectCode(t, err, ErrInvalidMFACode)
	if n, _ := te.LoginAttempts(ctx, "mfa@test.com"); n != 1 {
		t.Fatalf("wrong code must count as a failure, got %d", n)
	}

	ok, err := te.SignIn(ctx, SignInRequest{Email: "mfa@test.com", Password: testPassword, MFACode: te.code(t, setup.Secret)})
	if err != nil {
		t.Fatalf("sign in with code: %v", err)
	}
	if ok.Session == nil || ok.Session.AccessToken == "" {
		t.Fatal("expected a session")
	}
}

func TestSignInMFAFailuresShareLoginCounter(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "shared@test.com")
	setup := te.enableMFA(t, res.Session.AccessToken)
	ctx := context.Background()

	_, _ = te.SignIn(ctx, SignInRequest{Email: "shared@test.com", Password: "Wrong123!"})
	_, _ = te.SignIn(ctx, SignInRequest{Email: "shared@test.com", Password: testPassword, MFACode: "111111"})
	_, _ = te.SignIn(ctx, SignInRequest{Email: "shared@test.com", Password: testPassword, MFACode: "222222"})

	_, err := te.SignIn(ctx, SignInRequest{Email: "shared@test.com", Password: testPassword, MFACode: te.code(t, setup.Secret)})
	expectCode(t, err, ErrRateLimited)
}

func TestSignInWithBackupCode(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "backup@test.com")
	setup := te.enableMFA(t, res.Session.AccessToken)
	ctx := context.Background()

	code := setup.BackupCodes[0]
	if _, err := te.SignIn(ctx, SignInRequest{Email: "backup@test.com", Password: testPassword, MFACode: code}); err != nil {
		t.Fatalf("sign in with backup code: %v", err)
	}
	_, err := te.SignIn(ctx, SignInRequest{Email: "backup@test.com", Password: testPassword, MFACode: code})
	expectCode(t, err, ErrInvalidMFACode)

	if got := te.MetricsSnapshot().Counters[MetricBackupCodeUsed]; got != 1 {
		t.Fatalf("expected one backup code use, got %d", got)
	}
}

func TestSignInUpgradesWeakerHash(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "upgrade@test.com")
	ctx := context.Background()
	before, _ := te.users.PasswordHash(ctx, res.User.ID)

	te.config.Password.Time = 2
	stronger, err := newHasher(&te.config)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	te.hasher = password.NewPeppered(stronger, te.config.Password.Pepper)

	if _, err := te.SignIn(ctx, SignInRequest{Email: "upgrade@test.com", Password: testPassword}); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	after, _ := te.users.PasswordHash(ctx, res.User.ID)
	if after == before {
		t.Fatal("expected the stored hash to be upgraded")
	}
	if _, err := te.SignIn(ctx, SignInRequest{Email: "upgrade@test.com", Password: testPassword}); err != nil {
		t.Fatalf("sign in with upgraded hash: %v", err)
	}
}

func TestSignInLatencyHistogram(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config, _ *Builder) {
		cfg.Metrics.EnableLatencyHistograms = true
	})
	te.signUp(t, "lat@test.com")

	if _, err := te.SignIn(context.Background(), SignInRequest{Email: "lat@test.com", Password: testPassword}); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	var total uint64
	for _, n := range te.MetricsSnapshot().Histograms[MetricSignInLatency] {
		total += n
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
