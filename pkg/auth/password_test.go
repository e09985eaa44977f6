package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "Str0ng!pass", false},
		{"too short", "S1!a", true},
		{"missing uppercase", "str0ng!pass", true},
		{"missing lowercase", "STR0NG!PASS", true},
		{"missing number", "Strong!pass", true},
		{"missing special", "Str0ngpass", true},
		{"exactly minimum length", "Ab1!efgh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrPasswordPolicy) {
					t.Errorf("expected ErrPasswordPolicy, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass", DefaultPasswordPolicy())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Str0ng!pass" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := VerifyPassword("Str0ng!pass", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("correct password did not verify")
	}

	ok, err = VerifyPassword("Wr0ng!pass", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Error("wrong password verified")
	}
}

func TestHashPassword_RejectsOverlongInput(t *testing.T) {
	// 72 bytes is the bcrypt input ceiling; longer must be rejected, not
	// silently truncated.
	long := "Aa1!" + strings.Repeat("x", 69)
	if len(long) <= 72 {
		t.Fatalf("test password must exceed 72 bytes, got %d", len(long))
	}

	_, err := HashPassword(long, DefaultPasswordPolicy())
	if !errors.Is(err, domain.ErrPasswordPolicy) {
		t.Errorf("expected ErrPasswordPolicy, got %v", err)
	}

	exactly := "Aa1!" + strings.Repeat("x", 68)
	if len(exactly) != 72 {
		t.Fatalf("expected 72 bytes, got %d", len(exactly))
	}
	if _, err := HashPassword(exactly, DefaultPasswordPolicy()); err != nil {
		t.Errorf("72-byte password should be accepted: %v", err)
	}
}

func TestVerifyPassword_CorruptHash(t *testing.T) {
	ok, err := VerifyPassword("Str0ng!pass", "not-a-bcrypt-hash")
	if ok {
		t.Error("corrupt hash must not verify")
	}
	if !errors.Is(err, domain.ErrCorruptCredential) {
		t.Errorf("expected ErrCorruptCredential, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "alice@example.com", false},
		{"valid with plus", "alice+tag@example.com", false},
		{"empty", "", true},
		{"no at sign", "alice.example.com", true},
		{"no domain", "alice@", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidEmail) {
				t.Errorf("expected ErrInvalidEmail, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
