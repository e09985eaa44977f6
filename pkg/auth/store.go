package auth

import (
	"context"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

// AccountStore is the persistence contract for account rows. Every mutating
// call must apply as a single atomic read-modify-write against the account
// row: two racing requests on the same account serialize so that at most one
// observes a success transition.
//
// pkg/repository provides the Postgres implementation; tests use an
// in-memory fake.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// RecordLoginFailure atomically increments the failed-attempt counter and
	// sets locked_until to lockUntil once the incremented counter reaches
	// threshold. It returns the new counter value and lock expiry.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error)

	// ResetLoginFailures clears the counter and lock unconditionally and
	// records the successful login time.
	ResetLoginFailures(ctx context.Context, id uuid.UUID, loginAt time.Time) error

	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// SetRefreshSession overwrites the single active refresh session,
	// implicitly revoking any prior one.
	SetRefreshSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearRefreshSession(ctx context.Context, id uuid.UUID) error
	GetByRefreshTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	// SetSingleUseToken overwrites any unconsumed token of the same purpose.
	SetSingleUseToken(ctx context.Context, id uuid.UUID, purpose domain.TokenPurpose, tokenHash string, expiresAt time.Time) error
	GetBySingleUseTokenHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.Account, error)
	ClearSingleUseToken(ctx context.Context, id uuid.UUID, purpose domain.TokenPurpose) error

	// ConsumeVerificationToken marks the account verified and nulls the
	// verification token columns in one guarded update. It returns
	// domain.ErrTokenNotFound when no unexpired row matches the hash, which
	// is what a second concurrent consumer observes after the first commits.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)

	// ConsumeResetToken installs the new password hash and nulls the reset
	// token columns in one guarded update, with the same race semantics as
	// ConsumeVerificationToken.
	ConsumeResetToken(ctx context.Context, tokenHash string, newPasswordHash string, now time.Time) (*domain.Account, error)

	// PurgeExpiredTokens nulls expired single-use token columns across all
	// accounts and returns the number of rows touched.
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	SetTFAPending(ctx context.Context, id uuid.UUID, encryptedSecret string) error
	EnableTFA(ctx context.Context, id uuid.UUID) error
	DisableTFA(ctx context.Context, id uuid.UUID) error
}
