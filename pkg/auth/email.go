package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email address is required", domain.ErrInvalidEmail)
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email address is too long (max %d characters)", domain.ErrInvalidEmail, maxEmailLength)
	}
	if _, err := mail.ParseAddress(NormalizeEmail(email)); err != nil {
		return fmt.Errorf("%w: invalid format", domain.ErrInvalidEmail)
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
// Uniqueness is enforced on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
