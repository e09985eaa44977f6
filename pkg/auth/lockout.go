package auth

import (
	"context"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

const (
	// DefaultLockoutThreshold is the consecutive-failure count that locks an account.
	DefaultLockoutThreshold = 5
	// DefaultLockoutDuration is how long a triggered lock lasts.
	DefaultLockoutDuration = 30 * time.Minute
)

// LockoutConfig holds lockout policy parameters.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// LockoutTracker maintains the per-account failed-attempt counter and timed
// lock window. State machine: Open -> (threshold consecutive failures) ->
// Locked(until) -> (until elapsed) -> Open.
type LockoutTracker struct {
	config LockoutConfig
	store  AccountStore
	clock  Clock
}

// NewLockoutTracker creates a lockout tracker.
func NewLockoutTracker(config LockoutConfig, store AccountStore, clock Clock) *LockoutTracker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultLockoutThreshold
	}
	if config.Duration <= 0 {
		config.Duration = DefaultLockoutDuration
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &LockoutTracker{config: config, store: store, clock: clock}
}

// CheckLocked is a pure read: it reports whether the account is currently
// locked without mutating state. A locked account returns a LockedError
// carrying the lock expiry.
func (t *LockoutTracker) CheckLocked(account *domain.Account) error {
	if account.IsLocked(t.clock.Now()) {
		return domain.NewLockedError(*account.LockedUntil)
	}
	return nil
}

// RecordFailure increments the failed-attempt counter and transitions the
// account to Locked once the counter reaches the threshold. It reports
// whether this call triggered the lock transition.
//
// Only called after a verified-existing-account password check fails;
// unknown emails never reach a counter.
func (t *LockoutTracker) RecordFailure(ctx context.Context, accountID uuid.UUID) (lockTriggered bool, err error) {
	lockUntil := t.clock.Now().Add(t.config.Duration)
	attempts, lockedUntil, err := t.store.RecordLoginFailure(ctx, accountID, t.config.Threshold, lockUntil)
	if err != nil {
		return false, err
	}
	return attempts == t.config.Threshold && lockedUntil != nil, nil
}

// RecordSuccess resets the counter to zero and clears any lock unconditionally.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, accountID uuid.UUID) error {
	return t.store.ResetLoginFailures(ctx, accountID, t.clock.Now())
}
