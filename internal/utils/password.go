package utils

import (
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes, so longer passwords are rejected
// instead of being silently truncated.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 72
)

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword returns a client-safe reason when password is not acceptable.
func ValidatePassword(password string) (reason string, ok bool) {
	switch {
	case len(password) < MinPasswordLen:
		return "password must be at least 6 characters", false
	case len(password) > MaxPasswordLen:
		return "password too long (max 72 characters)", false
	}
	return "", true
}

// NormalizeEmail lower-cases and trims an address and reports whether it parses.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
