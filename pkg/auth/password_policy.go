package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// DefaultPasswordPolicy matches registration requirements: at least 8
// characters with one character from each of the four classes.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
	}
}

// Validate checks a password against the policy. Violations return errors
// wrapping domain.ErrPasswordPolicy.
func (p *PasswordPolicy) Validate(password string) error {
	if p.MinLength > 0 && len(password) < p.MinLength {
		return domain.PolicyViolation(fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if p.RequireUppercase && !containsClass(password, unicode.IsUpper) {
		return domain.PolicyViolation("password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !containsClass(password, unicode.IsLower) {
		return domain.PolicyViolation("password must contain at least one lowercase letter")
	}
	if p.RequireNumber && !containsClass(password, unicode.IsDigit) {
		return domain.PolicyViolation("password must contain at least one number")
	}
	if p.RequireSpecial && !containsSpecial(password) {
		return domain.PolicyViolation("password must contain at least one special character")
	}
	return nil
}

// Requirements returns a human-readable description of the policy.
func (p *PasswordPolicy) Requirements() string {
	var reqs []string
	if p.MinLength > 0 {
		reqs = append(reqs, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase {
		reqs = append(reqs, "one uppercase letter")
	}
	if p.RequireLowercase {
		reqs = append(reqs, "one lowercase letter")
	}
	if p.RequireNumber {
		reqs = append(reqs, "one number")
	}
	if p.RequireSpecial {
		reqs = append(reqs, "one special character")
	}
	if len(reqs) == 0 {
		return "No password requirements"
	}
	return "Password must contain " + strings.Join(reqs, ", ")
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}

func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
