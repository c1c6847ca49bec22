package authflow

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func benchEngine(b *testing.B, withRedis bool) *Engine {
	b.Helper()

	builder := New().WithConfig(testConfig())
	if withRedis {
		mr := miniredis.RunT(b)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		b.Cleanup(func() { _ = rdb.Close() })
		builder.WithRedis(rdb)
	}
	e, err := builder.Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.Cleanup(e.Close)
	return e
}

func benchSignUp(b *testing.B, e *Engine) *AuthResult {
	b.Helper()
	res, err := e.SignUp(context.Background(), SignUpRequest{
		Email:       "bench@test.com",
		Password:    testPassword,
		AcceptTerms: true,
	})
	if err != nil {
		b.Fatalf("sign up: %v", err)
	}
	return res
}

func BenchmarkValidateSessionMemory(b *testing.B) {
	e := benchEngine(b, false)
	res := benchSignUp(b, e)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := e.ValidateSession(ctx, res.Session.AccessToken); err != nil || !ok {
			b.Fatalf("validate: ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkValidateSessionRedis(b *testing.B) {
	e := benchEngine(b, true)
	res := benchSignUp(b, e)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, err := e.ValidateSession(ctx, res.Session.AccessToken); err != nil || !ok {
			b.Fatalf("validate: ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkRefreshSession(b *testing.B) {
	e := benchEngine(b, false)
	refresh := benchSignUp(b, e).Session.RefreshToken
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := e.RefreshSession(ctx, refresh)
		if err != nil {
			b.Fatalf("refresh: %v", err)
		}
		refresh = next.Session.RefreshToken
	}
}

func BenchmarkSignIn(b *testing.B) {
	e := benchEngine(b, false)
	benchSignUp(b, e)
	ctx := context.Background()
	req := SignInRequest{Email: "bench@test.com", Password: testPassword}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.SignIn(ctx, req); err != nil {
			b.Fatalf("sign in: %v", err)
		}
	}
}
