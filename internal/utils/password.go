package utils

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Account password policy.  bcrypt only looks at the first 72 bytes, so
// anything longer is refused instead of silently truncated.
const (
	MinPasswordLen   = 5
	MaxPasswordBytes = 72
)

var (
	ErrPasswordTooShort = fmt.Errorf("must be at least %d characters", MinPasswordLen)
	ErrPasswordTooLong  = fmt.Errorf("must be at most %d bytes", MaxPasswordBytes)
)

// CheckPassword reports whether plain satisfies the password policy.
func CheckPassword(plain string) error {
	switch {
	case utf8.RuneCountInString(plain) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(plain) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// IsPolicyError reports whether err came from CheckPassword.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong)
}

// HashPassword enforces the policy and returns the bcrypt hash of plain.
func HashPassword(plain string, cost int) (string, error) {
	if err := CheckPassword(plain); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a login attempt.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
