package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

const singleUseTokenLen = 32

// DefaultSingleUseTokenTTL is the lifetime of verification and reset tokens.
const DefaultSingleUseTokenTTL = 24 * time.Hour

// VerificationConfig holds single-use token lifetimes.
type VerificationConfig struct {
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
}

// VerificationService issues and consumes single-use, expiring tokens for
// email verification and password reset. A token is consumed exactly once:
// the purpose-specific side effect and the clearing of the token columns
// happen in one atomic store update, so a concurrent second consumer
// observes domain.ErrTokenNotFound after the first commits.
type VerificationService struct {
	config   VerificationConfig
	store    AccountStore
	policy   *PasswordPolicy
	tokens   *TokenService
	audit    *AuditDispatcher
	clock    Clock
}

// NewVerificationService creates a verification service. The token service
// is used to revoke refresh sessions after a password reset.
func NewVerificationService(config VerificationConfig, store AccountStore, policy *PasswordPolicy, tokens *TokenService, audit *AuditDispatcher, clock Clock) *VerificationService {
	if config.EmailVerificationTTL == 0 {
		config.EmailVerificationTTL = DefaultSingleUseTokenTTL
	}
	if config.PasswordResetTTL == 0 {
		config.PasswordResetTTL = DefaultSingleUseTokenTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &VerificationService{
		config: config,
		store:  store,
		policy: policy,
		tokens: tokens,
		audit:  audit,
		clock:  clock,
	}
}

// Issue generates a random token for the given purpose and stores its hash
// and expiry on the account, overwriting any unconsumed prior token of the
// same purpose. The raw token is returned once and never stored.
func (s *VerificationService) Issue(ctx context.Context, accountID uuid.UUID, purpose domain.TokenPurpose) (string, error) {
	rawToken, err := GenerateToken(singleUseTokenLen)
	if err != nil {
		return "", err
	}

	ttl := s.config.EmailVerificationTTL
	if purpose == domain.PurposePasswordReset {
		ttl = s.config.PasswordResetTTL
	}

	expiresAt := s.clock.Now().Add(ttl)
	if err := s.store.SetSingleUseToken(ctx, accountID, purpose, HashToken(rawToken), expiresAt); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return rawToken, nil
}

// ConsumeVerification consumes an email-verification token and marks the
// account verified. Expired tokens are cleared and fail with ErrTokenExpired;
// unknown or already-consumed tokens fail with ErrTokenNotFound.
func (s *VerificationService) ConsumeVerification(ctx context.Context, rawToken string) (*domain.Account, error) {
	tokenHash := HashToken(rawToken)
	now := s.clock.Now()

	if err := s.checkExpiry(ctx, domain.PurposeEmailVerification, tokenHash, now); err != nil {
		return nil, err
	}

	account, err := s.store.ConsumeVerificationToken(ctx, tokenHash, now)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ConsumeReset consumes a password-reset token and installs the new password,
// which is re-validated against the registration policy first. On success all
// refresh sessions for the account are revoked and a password-change audit
// event is emitted.
func (s *VerificationService) ConsumeReset(ctx context.Context, rawToken, newPassword string, meta RequestMeta) (*domain.Account, error) {
	tokenHash := HashToken(rawToken)
	now := s.clock.Now()

	if err := s.checkExpiry(ctx, domain.PurposePasswordReset, tokenHash, now); err != nil {
		return nil, err
	}

	newHash, err := HashPassword(newPassword, s.policy)
	if err != nil {
		return nil, err
	}

	account, err := s.store.ConsumeResetToken(ctx, tokenHash, newHash, now)
	if err != nil {
		return nil, err
	}

	// Stolen reset tokens must not keep old sessions alive.
	if s.tokens != nil {
		if err := s.tokens.Revoke(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	s.audit.Record(AuditEvent{
		EventType: EventPasswordChange,
		AccountID: account.ID.String(),
		Email:     account.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Outcome:   "reset",
	})
	return account, nil
}

// checkExpiry lazily clears an expired token of the given purpose and
// reports ErrTokenExpired. A token that does not resolve at all is left to
// the consume step, which reports ErrTokenNotFound.
func (s *VerificationService) checkExpiry(ctx context.Context, purpose domain.TokenPurpose, tokenHash string, now time.Time) error {
	account, err := s.store.GetBySingleUseTokenHash(ctx, purpose, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrTokenNotFound
		}
		return err
	}

	_, expires := account.SingleUseToken(purpose)
	if expires == nil || !now.Before(*expires) {
		// Treat as consumed: replay of an expired token reveals nothing.
		_ = s.store.ClearSingleUseToken(ctx, account.ID, purpose)
		return domain.ErrTokenExpired
	}
	return nil
}

// Reap purges expired single-use tokens across all accounts. Optional
// storage hygiene; correctness never depends on it since expiry is checked
// lazily on use.
func (s *VerificationService) Reap(ctx context.Context) (int64, error) {
	return s.store.PurgeExpiredTokens(ctx, s.clock.Now())
}
