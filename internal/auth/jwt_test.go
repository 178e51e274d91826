package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testConfig = TokenConfig{Secret: []byte("testsecret"), Issuer: "ircgate", TTL: time.Minute}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testConfig, "ops", RoleOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(testConfig, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != RoleOperator || claims.Issuer != "ircgate" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(TokenConfig{Secret: []byte("other"), Issuer: "ircgate"}, "ops", RoleOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(testConfig, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "ops",
		"iss": "ircgate",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testConfig.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(testConfig, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	token, err := GenerateToken(TokenConfig{Secret: testConfig.Secret, Issuer: "someone-else"}, "ops", RoleOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(testConfig, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "ops", "iss": "ircgate"}).SignedString(testConfig.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(testConfig, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS512 to be rejected, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	if _, err := GenerateToken(TokenConfig{}, "ops", RoleOperator); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := ValidateToken(TokenConfig{}, "x"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}
