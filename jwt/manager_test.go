package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T, clk clock.Clock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		Secret:        testSecret,
		Issuer:        "authflow",
		Clock:         clk,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndParse(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newHSManager(t, clk)

	tok, err := m.Issue(Ref{UserID: "u-1", SessionID: "s-1", Provider: "google"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SID != "s-1" || claims.UID != "u-1" || claims.Provider != "google" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}

	other, _ := m.Issue(Ref{UserID: "u-1", SessionID: "s-1"})
	otherClaims, _ := m.Parse(other)
	if otherClaims.ID == claims.ID {
		t.Fatal("jti must be unique per token")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newHSManager(t, clk)

	tok, err := m.Issue(Ref{UserID: "u", SessionID: "s", ExpiresAt: clk.Now().Add(time.Minute)})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clk.Advance(2 * time.Minute)
	if _, err := m.Parse(tok); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongAlgorithmAndIssuer(t *testing.T) {
	m := newHSManager(t, nil)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	claims := SessionClaims{SID: "s", UID: "u", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "authflow",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	edTok, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(edTok); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}

	claims.Issuer = "someone-else"
	hsTok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(hsTok); err == nil {
		t.Fatal("expected wrong issuer to be rejected")
	}
}

func TestParseRejectsTampering(t *testing.T) {
	m := newHSManager(t, nil)
	tok, err := m.Issue(Ref{UserID: "u", SessionID: "s"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Parse(strings.Join(parts, ".")); err == nil {
		t.Fatal("expected tampered signature to be rejected")
	}
}

func TestEd25519RoundTripAndVerifyOnly(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, KeyID: "k1"})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	verifier, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, KeyID: "k1"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	tok, err := signer.Issue(Ref{UserID: "u", SessionID: "s"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(tok); err != nil {
		t.Fatalf("verify-only manager should parse: %v", err)
	}
	if _, err := verifier.Issue(Ref{UserID: "u", SessionID: "s"}); err == nil {
		t.Fatal("verify-only manager must not sign")
	}
	if verifier.Method() != "EdDSA" {
		t.Fatalf("unexpected method %q", verifier.Method())
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: time.Minute, Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewManager(Config{Secret: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: "rs256", Secret: testSecret}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing ed25519 public key to be rejected")
	}
}
