package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterForTest(t *testing.T, config SignupLimiterConfig) (*SignupLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewSignupLimiter(rdb, config), mr
}

func TestSignupLimiter_EnforcesEmailLimit(t *testing.T) {
	limiter, _ := newLimiterForTest(t, SignupLimiterConfig{MaxAttempts: 3, Cooldown: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Enforce(ctx, "alice@example.com", ""); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := limiter.Enforce(ctx, "alice@example.com", ""); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// A different email has its own counter.
	if err := limiter.Enforce(ctx, "bob@example.com", ""); err != nil {
		t.Errorf("fresh email should pass: %v", err)
	}
}

func TestSignupLimiter_EnforcesIPLimit(t *testing.T) {
	limiter, _ := newLimiterForTest(t, SignupLimiterConfig{MaxAttempts: 2, Cooldown: time.Hour})
	ctx := context.Background()

	if err := limiter.Enforce(ctx, "a@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := limiter.Enforce(ctx, "b@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("second: %v", err)
	}
	// Third distinct email, same IP: blocked on the IP counter.
	if err := limiter.Enforce(ctx, "c@example.com", "203.0.113.7"); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestSignupLimiter_CooldownExpires(t *testing.T) {
	limiter, mr := newLimiterForTest(t, SignupLimiterConfig{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	if err := limiter.Enforce(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := limiter.Enforce(ctx, "alice@example.com", ""); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := limiter.Enforce(ctx, "alice@example.com", ""); err != nil {
		t.Errorf("counter should reset after cooldown: %v", err)
	}
}
