package security

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	t.Parallel()
	issuer := NewIssuer("user-secret", time.Hour)

	token, err := issuer.Issue(42, "a@b.c", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.c" || claims.Role != "user" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	t.Parallel()
	token, err := NewIssuer("user-secret", time.Hour).Issue(1, "a@b.c", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewIssuer("admin-secret", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Parse err = %v, want ErrInvalidToken", err)
	}
}

func TestParseExpired(t *testing.T) {
	t.Parallel()
	issuer := NewIssuer("s", -time.Minute)
	token, err := issuer.Issue(1, "a@b.c", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Parse err = %v, want ErrExpiredToken", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("s3cret", hash) {
		t.Fatalf("VerifyPassword(correct) = false")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("VerifyPassword(wrong) = true")
	}
	if VerifyPassword("s3cret", "") || VerifyPassword("s3cret", "$bcrypt$x") {
		t.Fatalf("VerifyPassword accepted a malformed hash")
	}
}
