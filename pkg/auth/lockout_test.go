package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

func newTestAccount(t *testing.T, store *memStore, email string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:     uuid.New(),
		Email:  email,
		Role:   domain.RoleUser,
		Active: true,
	}
	if err := store.Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestLockoutTracker_LocksAtThreshold(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tracker := NewLockoutTracker(LockoutConfig{Threshold: 5, Duration: 30 * time.Minute}, store, clock)
	account := newTestAccount(t, store, "alice@example.com")
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		triggered, err := tracker.RecordFailure(ctx, account.ID)
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if triggered {
			t.Fatalf("lock triggered early at failure %d", i)
		}
		got, _ := store.GetByID(ctx, account.ID)
		if err := tracker.CheckLocked(got); err != nil {
			t.Fatalf("account locked early at failure %d", i)
		}
	}

	triggered, err := tracker.RecordFailure(ctx, account.ID)
	if err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	if !triggered {
		t.Fatal("fifth failure must trigger the lock")
	}

	got, _ := store.GetByID(ctx, account.ID)
	err = tracker.CheckLocked(got)
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatal("expected a LockedError")
	}
	if retry := locked.RetryAfter(clock.Now()); retry != 30*time.Minute {
		t.Errorf("RetryAfter = %v, want 30m", retry)
	}
}

func TestLockoutTracker_LockExpires(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tracker := NewLockoutTracker(LockoutConfig{Threshold: 5, Duration: 30 * time.Minute}, store, clock)
	account := newTestAccount(t, store, "alice@example.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := tracker.RecordFailure(ctx, account.ID); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	got, _ := store.GetByID(ctx, account.ID)
	if err := tracker.CheckLocked(got); err == nil {
		t.Fatal("account should be locked")
	}

	// One second short of expiry: still locked.
	clock.Advance(30*time.Minute - time.Second)
	got, _ = store.GetByID(ctx, account.ID)
	if err := tracker.CheckLocked(got); err == nil {
		t.Fatal("account should still be locked just before expiry")
	}

	clock.Advance(time.Second)
	got, _ = store.GetByID(ctx, account.ID)
	if err := tracker.CheckLocked(got); err != nil {
		t.Fatalf("lock should have expired: %v", err)
	}
}

func TestLockoutTracker_SuccessResetsCounter(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	tracker := NewLockoutTracker(LockoutConfig{Threshold: 5, Duration: 30 * time.Minute}, store, clock)
	account := newTestAccount(t, store, "alice@example.com")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := tracker.RecordFailure(ctx, account.ID); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	if err := tracker.RecordSuccess(ctx, account.ID); err != nil {
		t.Fatalf("record success: %v", err)
	}

	got, _ := store.GetByID(ctx, account.ID)
	if got.FailedLoginAttempts != 0 {
		t.Errorf("counter = %d after success, want 0", got.FailedLoginAttempts)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(clock.Now()) {
		t.Errorf("LastLoginAt = %v, want %v", got.LastLoginAt, clock.Now())
	}

	// Counter restarts from zero: four more failures do not lock.
	for i := 0; i < 4; i++ {
		triggered, err := tracker.RecordFailure(ctx, account.ID)
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if triggered {
			t.Fatal("lock triggered before threshold after reset")
		}
	}
}
