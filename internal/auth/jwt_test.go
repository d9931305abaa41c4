package auth

import (
	"testing"
	"time"
)

func TestGenerateAndVerify(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	token, err := issuer.GenerateJWT(42, "a@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := issuer.VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, _ := NewIssuer("secret", time.Hour)
	other, _ := NewIssuer("other", time.Hour)
	expired, _ := NewIssuer("secret", -time.Minute)

	foreign, _ := other.GenerateJWT(1, "x@example.com")
	if _, err := issuer.VerifyJWT(foreign); err != ErrInvalidToken {
		t.Fatalf("expected invalid token, got %v", err)
	}

	old, _ := expired.GenerateJWT(1, "x@example.com")
	if _, err := issuer.VerifyJWT(old); err != ErrInvalidToken {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	if _, err := issuer.VerifyJWT("garbage"); err != ErrInvalidToken {
		t.Fatalf("expected garbage to fail, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); err == nil {
		t.Fatal("expected error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatal("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected mismatch")
	}
}
