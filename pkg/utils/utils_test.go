package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWT(t *testing.T) {
	secret := "supersecret"

	token, err := GenerateToken("123", "a@example.com", "Alice", secret, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if claims.UserID != "123" {
		t.Errorf("Expected UserID 123, got %s", claims.UserID)
	}
	if claims.Email != "a@example.com" || claims.Name != "Alice" {
		t.Errorf("Expected email and name to round trip, got %q %q", claims.Email, claims.Name)
	}

	_, err = ValidateToken(token, "wrongsecret")
	if err == nil {
		t.Errorf("Expected error with wrong secret")
	}
}

func TestJWTSubjectFallback(t *testing.T) {
	secret := "supersecret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "from-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims, err := ValidateToken(signed, secret)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.UserID != "from-sub" {
		t.Errorf("Expected UserID from subject, got %s", claims.UserID)
	}
}

func TestJWTExpired(t *testing.T) {
	secret := "supersecret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ValidateToken(signed, secret); err == nil {
		t.Errorf("Expected error for expired token")
	}
}
