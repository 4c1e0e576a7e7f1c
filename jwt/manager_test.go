package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var hsKey = []byte("0123456789abcdef0123456789abcdef")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueAndParseHS256(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsKey, Issuer: "waitgate"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.Issue("ops@example.com", []string{ScopeMetricsRead})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.HasScope(ScopeMetricsRead) || claims.HasScope(ScopePoliciesRead) {
		t.Fatalf("unexpected scopes %v", claims.Scopes)
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Audience: "admin"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	tok, err := m.Issue("ops", []string{ScopePoliciesRead})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(tok); err != nil {
		t.Fatalf("parse: %v", err)
	}

	verifyOnly, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Audience: "admin"})
	if err != nil {
		t.Fatalf("verify-only manager: %v", err)
	}
	if _, err := verifyOnly.Parse(tok); err != nil {
		t.Fatalf("verify-only parse: %v", err)
	}
	if _, err := verifyOnly.Issue("ops", nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("verify-only manager must not sign, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := OperatorClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "ops",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(hsKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredAndForeignIssuer(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsKey, Issuer: "waitgate"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := m.Issue("ops", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	m.now = time.Now
	if _, err := m.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsKey, Issuer: "someone-else"})
	foreign, err := other.Issue("ops", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign issuer to be rejected, got %v", err)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsKey})
	tok, err := m.Issue("ops", []string{ScopeMetricsRead})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Parse(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to be rejected, got %v", err)
	}
	for _, junk := range []string{"", "a.b", "a.b.c", "....."} {
		if _, err := m.Parse(junk); err == nil {
			t.Fatalf("expected %q to be rejected", junk)
		}
	}
}

func TestKeyRotationWithVerifyKeys(t *testing.T) {
	oldPub, oldPriv := newEdKeys(t)
	newPub, _ := newEdKeys(t)

	signer, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: oldPriv, PublicKey: oldPub, KeyID: "k1"})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	tok, err := signer.Issue("ops", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		VerifyKeys:    map[string][]byte{"k1": oldPub, "k2": newPub},
	})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if _, err := verifier.Parse(tok); err != nil {
		t.Fatalf("rotated verifier rejected old kid: %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: hsKey},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: hsKey},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsKey, Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}
