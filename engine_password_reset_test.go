package authflow

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPasswordResetScenario(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "alice@test.com")
	ctx := context.Background()

	if res.User.EmailVerified {
		t.Fatal("expected unverified account")
	}

	out, err := te.ResetPassword(ctx, "alice@test.com")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if out.Message != resetMessage || out.Email != "alice@test.com" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if te.resets.CountFor("alice@test.com") != 1 {
		t.Fatal("expected a reset token for the account")
	}
	token, ok := te.notifier.LastReset("alice@test.com")
	if !ok {
		t.Fatal("expected the reset token to be delivered")
	}

	if err := te.ConfirmPasswordReset(ctx, token, "Changed456!"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := te.SignIn(ctx, SignInRequest{Email: "alice@test.com", Password: "Changed456!"}); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
	_, err = te.SignIn(ctx, SignInRequest{Email: "alice@test.com", Password: testPassword})
	expectCode(t, err, ErrInvalidCredentials)
}

func TestResetPasswordUnknownEmailLooksTheSame(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "known@test.com")
	ctx := context.Background()

	known, err := te.ResetPassword(ctx, "known@test.com")
	if err != nil {
		t.Fatalf("reset known: %v", err)
	}
	unknown, err := te.ResetPassword(ctx, "unknown@test.com")
	if err != nil {
		t.Fatalf("reset unknown: %v", err)
	}
	if known.Message != unknown.Message {
		t.Fatalf("responses differ: %q vs %q", known.Message, unknown.Message)
	}
	if _, ok := te.notifier.LastReset("unknown@test.com"); ok {
		t.Fatal("no token may be issued for an unknown address")
	}
	if len(te.SecurityLog(ctx, "unknown@test.com")) != 0 {
		t.Fatal("unknown address must not be logged")
	}
}

func TestConfirmPasswordResetSingleUse(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "once@test.com")
	ctx := context.Background()

	_, _ = te.ResetPassword(ctx, "once@test.com")
	token, _ := te.notifier.LastReset("once@test.com")

	if err := te.ConfirmPasswordReset(ctx, token, "Changed456!"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	err := te.ConfirmPasswordReset(ctx, token, "Again789!")
	expectCode(t, err, ErrResetTokenInvalid)
}

func TestConfirmPasswordResetConcurrentSingleUse(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "race-reset@test.com")
	ctx := context.Background()

	_, _ = te.ResetPassword(ctx, "race-reset@test.com")
	token, _ := te.notifier.LastReset("race-reset@test.com")

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := te.ConfirmPasswordReset(ctx, token, "Changed456!")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if CodeOf(err) != CodeResetTokenInvalid {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if te.resets.CountFor("race-reset@test.com") != 0 {
		t.Fatal("reset token must be consumed")
	}
}

func TestConfirmPasswordResetExpiredIsRemoved(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "expired@test.com")
	ctx := context.Background()

	_, _ = te.ResetPassword(ctx, "expired@test.com")
	token, _ := te.notifier.LastReset("expired@test.com")

	te.clock.Advance(time.Hour + time.Second)
	err := te.ConfirmPasswordReset(ctx, token, "Changed456!")
	expectCode(t, err, ErrResetTokenExpired)

	err = te.ConfirmPasswordReset(ctx, token, "Changed456!")
	expectCode(t, err, ErrResetTokenInvalid)
}

func TestConfirmPasswordResetWeakKeepsToken(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "weak@test.com")
	ctx := context.Background()

	_, _ = te.ResetPassword(ctx, "weak@test.com")
	token, _ := te.notifier.LastReset("weak@test.com")

	err := te.ConfirmPasswordReset(ctx, token, "weak")
	expectCode(t, err, ErrWeakPassword)

	if err := te.ConfirmPasswordReset(ctx, token, "Changed456!"); err != nil {
		t.Fatalf("token should survive a weak attempt: %v", err)
	}
}

func TestConfirmPasswordResetUnknownToken(t *testing.T) {
	te := newTestEngine(t)
	err := te.ConfirmPasswordReset(context.Background(), "not-a-token", "Changed456!")
	expectCode(t, err, ErrResetTokenInvalid)
}

func TestUpdatePassword(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "change@test.com")
	ctx := context.Background()
	tok := res.Session.AccessToken

	err := te.UpdatePassword(ctx, tok, "Wrong123!", "Changed456!")
	expectCode(t, err, ErrInvalidCredentials)

	err = te.UpdatePassword(ctx, tok, testPassword, "weak")
	expectCode(t, err, ErrWeakPassword)

	if err := te.UpdatePassword(ctx, tok, testPassword, "Changed456!"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := te.SignIn(ctx, SignInRequest{Email: "change@test.com", Password: "Changed456!"}); err != nil {
		t.Fatalf("sign in with changed password: %v", err)
	}

	log := te.SecurityLog(ctx, "change@test.com")
	found := false
	for _, e := range log {
		if e.Event == EventPasswordChanged && e.Success {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a successful PASSWORD_CHANGED entry")
	}
}
