package hub_server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
)

func parseStripToken(t *testing.T, tokenString, secret string) (*StripClaims, error) {
	t.Helper()
	claims := &StripClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	)
	return claims, err
}

func TestSignTokenRoundTrip(t *testing.T) {
	config := &c.JWTConfig{Secret: "test-secret", ExpiresDuration: time.Hour}
	tokenString, err := SignToken(config, "u1", "ZSSS_TWR", true)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	claims, err := parseStripToken(t, tokenString, config.Secret)
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "ZSSS_TWR" || !claims.Elevated {
		t.Errorf("claims not preserved: %+v", claims)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Errorf("token should expire in the future, got %v", claims.ExpiresAt)
	}
}

func TestSignTokenRejectsWrongSecret(t *testing.T) {
	config := &c.JWTConfig{Secret: "test-secret", ExpiresDuration: time.Hour}
	tokenString, err := SignToken(config, "u1", "ZSSS_TWR", false)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	if _, err := parseStripToken(t, tokenString, "another-secret"); err == nil {
		t.Error("token signed with a different secret should not verify")
	}
}

func TestNewStripClaimsExpiry(t *testing.T) {
	claims := NewStripClaims("u2", "ZGGG_APP", false, time.Minute)
	if claims.Elevated {
		t.Error("elevated should be false")
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != time.Minute {
		t.Errorf("expected 1m lifetime, got %v", lifetime)
	}
}
