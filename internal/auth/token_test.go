package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueVerify_Roundtrip(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	token, err := iss.Issue("user-1", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "ann@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer("test-secret", -time.Minute)

	token, err := iss.Issue("user-1", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := iss.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a", time.Hour).Issue("user-1", "a@b.co")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewIssuer("secret-b", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerify_Tampered(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	token, err := iss.Issue("user-1", "a@b.co")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Corrupt the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	body := []byte(parts[1])
	if body[0] == 'A' {
		body[0] = 'B'
	} else {
		body[0] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	if _, err := iss.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	if _, err := iss.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
