package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/workbooks-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "workbooks", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "u1", Username: "ada"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" {
		t.Fatalf("unexpected subject claims %+v", claims)
	}
	if claims.DisplayName() != "ada" {
		t.Fatalf("expected display name ada, got %q", claims.DisplayName())
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestDisplayNameFallsBackToUserID(t *testing.T) {
	claims := &AccessTokenClaims{UserID: "u2"}
	if claims.DisplayName() != "u2" {
		t.Fatalf("expected fallback to user id, got %q", claims.DisplayName())
	}
}

func TestParseAccessTokenRejections(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wrongSecret := cfg
	wrongSecret.Secret = "other"
	if _, err := ParseAccessToken(wrongSecret, token); err == nil {
		t.Fatalf("expected signature failure")
	}

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	if _, err := ParseAccessToken(wrongIssuer, token); err == nil {
		t.Fatalf("expected issuer failure")
	}

	expired, err := MintAccessToken(cfg, now.Add(-2*time.Hour), AccessTokenPayload{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	if _, err := ParseAccessToken(cfg, expired); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry failure, got %v", err)
	}

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign anonymous: %v", err)
	}
	if _, err := ParseAccessToken(cfg, anonymous); err == nil {
		t.Fatalf("expected missing user_id failure")
	}
}

func TestMintAccessTokenRequiresUser(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatalf("expected error without user id")
	}
}
