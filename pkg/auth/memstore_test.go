package auth

import (
	"context"
	"sync"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

// fakeClock is a settable clock for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory AccountStore. A single mutex serializes all
// mutations, mirroring the per-row atomicity of the real store.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func (s *memStore) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrAccountAlreadyExists
		}
	}
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Active = false
	return nil
}

func (s *memStore) RecordLoginFailure(_ context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return 0, nil, domain.ErrAccountNotFound
	}
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= threshold {
		until := lockUntil
		a.LockedUntil = &until
	}
	var locked *time.Time
	if a.LockedUntil != nil {
		until := *a.LockedUntil
		locked = &until
	}
	return a.FailedLoginAttempts, locked, nil
}

func (s *memStore) ResetLoginFailures(_ context.Context, id uuid.UUID, loginAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	at := loginAt
	a.LastLoginAt = &at
	return nil
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (s *memStore) SetRefreshSession(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.RefreshTokenHash = &tokenHash
	expires := expiresAt
	a.RefreshTokenExpires = &expires
	return nil
}

func (s *memStore) ClearRefreshSession(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.RefreshTokenHash = nil
	a.RefreshTokenExpires = nil
	return nil
}

func (s *memStore) GetByRefreshTokenHash(_ context.Context, tokenHash string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.RefreshTokenHash != nil && *a.RefreshTokenHash == tokenHash {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *memStore) SetSingleUseToken(_ context.Context, id uuid.UUID, purpose domain.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	hash := tokenHash
	expires := expiresAt
	if purpose == domain.PurposePasswordReset {
		a.ResetTokenHash = &hash
		a.ResetTokenExpires = &expires
	} else {
		a.VerificationTokenHash = &hash
		a.VerificationTokenExpires = &expires
	}
	return nil
}

func (s *memStore) GetBySingleUseTokenHash(_ context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		hash, _ := a.SingleUseToken(purpose)
		if hash != nil && *hash == tokenHash {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *memStore) ClearSingleUseToken(_ context.Context, id uuid.UUID, purpose domain.TokenPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if purpose == domain.PurposePasswordReset {
		a.ResetTokenHash = nil
		a.ResetTokenExpires = nil
	} else {
		a.VerificationTokenHash = nil
		a.VerificationTokenExpires = nil
	}
	return nil
}

func (s *memStore) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.VerificationTokenHash != nil && *a.VerificationTokenHash == tokenHash &&
			a.VerificationTokenExpires != nil && now.Before(*a.VerificationTokenExpires) {
			a.Verified = true
			a.VerificationTokenHash = nil
			a.VerificationTokenExpires = nil
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *memStore) ConsumeResetToken(_ context.Context, tokenHash string, newPasswordHash string, now time.Time) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash &&
			a.ResetTokenExpires != nil && now.Before(*a.ResetTokenExpires) {
			a.PasswordHash = newPasswordHash
			a.ResetTokenHash = nil
			a.ResetTokenExpires = nil
			a.FailedLoginAttempts = 0
			a.LockedUntil = nil
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *memStore) PurgeExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for _, a := range s.accounts {
		touched := false
		if a.VerificationTokenExpires != nil && !now.Before(*a.VerificationTokenExpires) {
			a.VerificationTokenHash = nil
			a.VerificationTokenExpires = nil
			touched = true
		}
		if a.ResetTokenExpires != nil && !now.Before(*a.ResetTokenExpires) {
			a.ResetTokenHash = nil
			a.ResetTokenExpires = nil
			touched = true
		}
		if touched {
			purged++
		}
	}
	return purged, nil
}

func (s *memStore) SetTFAPending(_ context.Context, id uuid.UUID, encryptedSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	secret := encryptedSecret
	a.TFAEnabled = false
	a.TFASecretEncrypted = &secret
	return nil
}

func (s *memStore) EnableTFA(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if a.TFASecretEncrypted == nil {
		return domain.ErrAccountNotFound
	}
	a.TFAEnabled = true
	return nil
}

func (s *memStore) DisableTFA(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.TFAEnabled = false
	a.TFASecretEncrypted = nil
	return nil
}
