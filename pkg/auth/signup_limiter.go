package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/redis/go-redis/v9"
)

// SignupLimiterConfig throttles registration per normalized email and per
// client IP over a cooldown window.
type SignupLimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// DefaultSignupLimiterConfig allows 5 attempts per key per hour.
func DefaultSignupLimiterConfig() SignupLimiterConfig {
	return SignupLimiterConfig{MaxAttempts: 5, Cooldown: time.Hour}
}

// SignupLimiter enforces a registration throttle backed by Redis counters
// with a TTL set on first increment.
type SignupLimiter struct {
	redis  *redis.Client
	config SignupLimiterConfig
}

// NewSignupLimiter creates a registration throttle.
func NewSignupLimiter(redisClient *redis.Client, config SignupLimiterConfig) *SignupLimiter {
	if config.MaxAttempts <= 0 {
		config = DefaultSignupLimiterConfig()
	}
	return &SignupLimiter{redis: redisClient, config: config}
}

// Enforce checks the email and IP counters, incrementing both. Returns
// domain.ErrRateLimited when either exceeds the configured attempts.
func (l *SignupLimiter) Enforce(ctx context.Context, email, ip string) error {
	if err := l.enforceKey(ctx, "signup:email:"+email); err != nil {
		return err
	}
	if ip != "" {
		return l.enforceKey(ctx, "signup:ip:"+ip)
	}
	return nil
}

func (l *SignupLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("signup limiter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("signup limiter: %w", err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return domain.ErrRateLimited
	}
	return nil
}
