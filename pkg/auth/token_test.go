package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "plaidbridge",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseCallerToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintCallerToken(cfg, now, " user-42 ")
	if err != nil {
		t.Fatalf("mint caller token: %v", err)
	}

	claims, err := ParseCallerToken(cfg, token)
	if err != nil {
		t.Fatalf("parse caller token: %v", err)
	}

	if claims.ClientUserID() != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.ClientUserID())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch: %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		t.Fatalf("invalid expiry %v", claims.ExpiresAt)
	}
}

func TestMintCallerTokenValidation(t *testing.T) {
	now := time.Now()
	cases := map[string]struct {
		cfg  config.JWTConfig
		user string
	}{
		"missing secret": {cfg: config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, user: "u"},
		"missing issuer": {cfg: config.JWTConfig{Secret: "s", ExpirationMinutes: 1}, user: "u"},
		"zero ttl":       {cfg: config.JWTConfig{Secret: "s", Issuer: "x"}, user: "u"},
		"blank user":     {cfg: testJWTConfig(), user: "   "},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := MintCallerToken(tc.cfg, now, tc.user); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseCallerTokenRejects(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	expired, err := MintCallerToken(cfg, now.Add(-2*time.Hour), "user-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseCallerToken(cfg, expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	valid, err := MintCallerToken(cfg, now, "user-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Secret = "different"
	if _, err := ParseCallerToken(other, valid); err == nil {
		t.Fatal("expected signature mismatch")
	}
	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseCallerToken(other, valid); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	})
	signed, err := noSubject.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseCallerToken(cfg, signed); err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("expected subject error, got %v", err)
	}

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: cfg.Issuer, Subject: "user-1"})
	signed, err = noExpiry.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseCallerToken(cfg, signed); err == nil {
		t.Fatal("expected missing exp to fail")
	}
}
