package authflow

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestSignUpReturnsUserWithoutHash(t *testing.T) {
	te := newTestEngine(t)
	res := te.signUp(t, "Alice@Test.com")

	if res.User.Email != "alice@test.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.EmailVerified {
		t.Fatal("new account must be unverified")
	}
	if res.User.Name != "alice" {
		t.Fatalf("expected name from local part, got %q", res.User.Name)
	}
	if res.User.Role != "user" {
		t.Fatalf("expected default role, got %q", res.User.Role)
	}
	if res.Session == nil || res.Session.AccessToken == "" || res.Session.RefreshToken == "" {
		t.Fatalf("expected an issued session, got %+v", res.Session)
	}

	body, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "password") || strings.Contains(lower, "argon2") {
		t.Fatalf("serialized result leaks credential material: %s", body)
	}
}

func TestSignUpDefaultsAndSideEffects(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	res, err := te.SignUp(ctx, SignUpRequest{
		Email:            "bob@test.com",
		Password:         testPassword,
		Name:             "<b>Bob</b><script>alert(1)</script>",
		AcceptTerms:      true,
		MarketingConsent: true,
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.User.Name != "Bob" {
		t.Fatalf("expected sanitized name, got %q", res.User.Name)
	}
	prefs := res.User.Profile.Preferences
	if prefs.Theme != "light" || !prefs.EmailNotifications || !prefs.MarketingEmails {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
	if _, ok := te.notifier.LastVerification("bob@test.com"); !ok {
		t.Fatal("expected a verification token to be sent")
	}
	if got := te.LinkedProviders(ctx, res.User.ID); len(got) != 1 || got[0] != "email" {
		t.Fatalf("expected [email] link, got %v", got)
	}

	log := te.SecurityLog(ctx, "bob@test.com")
	if len(log) != 1 || log[0].Event != EventUserRegistered || !log[0].Success {
		t.Fatalf("unexpected security log: %+v", log)
	}
}

func TestSignUpValidationOrder(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "taken@test.com")
	ctx := context.Background()

	cases := []struct {
		name string
		req  SignUpRequest
		want *AuthError
	}{
		{"invalid email beats everything", SignUpRequest{Email: "nope", Password: "x"}, ErrInvalidEmail},
		{"markup only email", SignUpRequest{Email: "<b></b>", Password: testPassword, AcceptTerms: true}, ErrInvalidEmail},
		{"duplicate beats weak password", SignUpRequest{Email: "TAKEN@test.com", Password: "x"}, ErrEmailAlreadyExists},
		{"weak beats terms", SignUpRequest{Email: "new@test.com", Password: "short"}, ErrWeakPassword},
		{"no uppercase", SignUpRequest{Email: "new@test.com", Password: "secret123!", AcceptTerms: true}, ErrWeakPassword},
		{"no digit", SignUpRequest{Email: "new@test.com", Password: "SecretPass!", AcceptTerms: true}, ErrWeakPassword},
		{"terms", SignUpRequest{Email: "new@test.com", Password: testPassword}, ErrTermsNotAccepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := te.SignUp(ctx, tc.req)
			expectCode(t, err, tc.want)
		})
	}
}

func TestSignUpDuplicateIsCaseInsensitive(t *testing.T) {
	te := newTestEngine(t)
	te.signUp(t, "carol@test.com")

	_, err := te.SignUp(context.Background(), SignUpRequest{
		Email:       "  CAROL@Test.COM ",
		Password:    testPassword,
		AcceptTerms: true,
	})
	expectCode(t, err, ErrEmailAlreadyExists)
	if StatusCode(err) != 409 {
		t.Fatalf("expected 409 hint, got %d", StatusCode(err))
	}
}

func TestSignUpConcurrentSameEmailOneWins(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := te.SignUp(ctx, SignUpRequest{Email: "race@test.com", Password: testPassword, AcceptTerms: true})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case CodeOf(err) != CodeEmailAlreadyExists:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful sign-up, got %d", ok)
	}
}

func TestSignUpPolicyFromConfig(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config, _ *Builder) {
		cfg.Password.MinLength = 12
		cfg.Password.RequireSpecialChars = true
		cfg.Password.RequireLowercase = true
	})
	ctx := context.Background()

	_, err := te.SignUp(ctx, SignUpRequest{Email: "d@test.com", Password: "Secret12345x", AcceptTerms: true})
	expectCode(t, err, ErrWeakPassword)

	if _, err := te.SignUp(ctx, SignUpRequest{Email: "d@test.com", Password: "Secret1234!x", AcceptTerms: true}); err != nil {
		t.Fatalf("expected policy-compliant password to pass: %v", err)
	}
}
