package auth

import (
	"errors"
	"fmt"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt hashes at most 72 bytes of input. Longer passwords are rejected
// rather than silently truncated, so two distinct long passwords can never
// collide on the same hash.
const maxPasswordBytes = 72

// HashPassword validates the password against the policy and hashes it with
// bcrypt. Returns a domain.ErrPasswordPolicy error on any policy violation.
func HashPassword(password string, policy *PasswordPolicy) (string, error) {
	if policy != nil {
		if err := policy.Validate(password); err != nil {
			return "", err
		}
	}
	if len(password) > maxPasswordBytes {
		return "", domain.PolicyViolation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a password against a stored bcrypt hash.
// A mismatch returns (false, nil); a malformed stored hash returns
// domain.ErrCorruptCredential so callers can log the integrity fault loudly.
func VerifyPassword(password, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", domain.ErrCorruptCredential, err)
}
