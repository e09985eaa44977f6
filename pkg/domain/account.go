package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleCoach Role = "coach"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleCoach || r == RoleAdmin
}

// TokenPurpose tags a single-use token as email verification or password reset.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// Account is the identity anchor. Lockout state, the active refresh session,
// single-use tokens, and the two-factor enrollment all live on the account
// row so each mutation is a single atomic read-modify-write.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	Verified     bool

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time

	RefreshTokenHash    *string
	RefreshTokenExpires *time.Time

	VerificationTokenHash    *string
	VerificationTokenExpires *time.Time
	ResetTokenHash           *string
	ResetTokenExpires        *time.Time

	TFAEnabled         bool
	TFASecretEncrypted *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked reports whether the account is locked out at the given time.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// TFAPending reports whether a two-factor secret has been provisioned but
// not yet confirmed by the account holder.
func (a *Account) TFAPending() bool {
	return !a.TFAEnabled && a.TFASecretEncrypted != nil
}

// SingleUseToken returns the stored hash and expiry for the given purpose.
func (a *Account) SingleUseToken(purpose TokenPurpose) (hash *string, expires *time.Time) {
	if purpose == PurposePasswordReset {
		return a.ResetTokenHash, a.ResetTokenExpires
	}
	return a.VerificationTokenHash, a.VerificationTokenExpires
}
