package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := CheckPassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("CheckPassword rejected correct password: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("CheckPassword accepted wrong password")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"too short", "12345", false},
		{"minimum", "123456", true},
		{"maximum", strings.Repeat("a", 72), true},
		{"too long", strings.Repeat("a", 73), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := ValidatePassword(tt.password)
			if ok != tt.ok {
				t.Fatalf("ok = %v (%s), want %v", ok, reason, tt.ok)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, ok := NormalizeEmail("  Jane.Doe@Example.COM ")
	if !ok || got != "jane.doe@example.com" {
		t.Fatalf("NormalizeEmail = %q, %v", got, ok)
	}
	for _, bad := range []string{"", "not-an-email", "Jane <jane@example.com>"} {
		if _, ok := NormalizeEmail(bad); ok {
			t.Errorf("NormalizeEmail(%q) accepted", bad)
		}
	}
}
