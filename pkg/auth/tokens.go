package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	refreshTokenLen = 32 // 256-bit opaque value

	// DefaultAccessTokenTTL is the access token lifetime.
	DefaultAccessTokenTTL = 30 * time.Minute
	// DefaultRefreshTokenTTL is the refresh token lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenConfig holds token issuance configuration. The signing secret and
// algorithm are configuration, never hard-coded.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	Verified bool        `json:"email_verified,omitempty"`
}

// TokenService issues and validates access tokens and manages the single
// active refresh session per account.
//
// Refresh policy: a new login overwrites the stored refresh-token hash,
// implicitly revoking the prior session. A successful refresh issues a fresh
// access token only; the refresh token itself is not rotated on use.
type TokenService struct {
	config TokenConfig
	store  AccountStore
	clock  Clock
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig, store AccountStore, clock Clock) *TokenService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &TokenService{config: config, store: store, clock: clock}
}

// AccessTokenTTL returns the configured access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration { return s.config.AccessTokenTTL }

// RefreshTokenTTL returns the configured refresh token TTL.
func (s *TokenService) RefreshTokenTTL() time.Duration { return s.config.RefreshTokenTTL }

// IssuePair issues a new access/refresh token pair for the account and
// persists the refresh-token hash, overwriting any prior session.
func (s *TokenService) IssuePair(ctx context.Context, account *domain.Account) (*domain.TokenPair, error) {
	now := s.clock.Now()

	refreshToken, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}
	refreshExpiry := now.Add(s.config.RefreshTokenTTL)
	if err := s.store.SetRefreshSession(ctx, account.ID, HashToken(refreshToken), refreshExpiry); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(account, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}

// VerifyAccessToken validates signature and expiry only; it never touches
// persistent state.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Rotate exchanges a presented refresh token for a fresh access token. The
// presented token must hash-match the stored session and be unexpired. On an
// expired session the stored hash is cleared before failing, forcing a full
// re-login and limiting the replay window.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	tokenHash := HashToken(refreshToken)

	account, err := s.store.GetByRefreshTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	// Re-compare in constant time; the lookup index is not the authority.
	if account.RefreshTokenHash == nil || !TokensEqual(*account.RefreshTokenHash, tokenHash) {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidToken
	}

	now := s.clock.Now()
	if account.RefreshTokenExpires == nil || !now.Before(*account.RefreshTokenExpires) {
		_ = s.store.ClearRefreshSession(ctx, account.ID)
		metrics.TokenRefreshTotal.WithLabelValues("expired").Inc()
		return nil, domain.ErrTokenExpired
	}

	accessToken, accessExpiry, err := s.signAccessToken(account, now)
	if err != nil {
		return nil, err
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // not rotated on use
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}

// Revoke clears the stored refresh session for the account. Used by explicit
// logout and by refresh failure paths.
func (s *TokenService) Revoke(ctx context.Context, accountID uuid.UUID) error {
	return s.store.ClearRefreshSession(ctx, accountID)
}

// RevokeByToken revokes the session matching a presented refresh token.
// Unknown tokens are a no-op: logout is idempotent.
func (s *TokenService) RevokeByToken(ctx context.Context, refreshToken string) error {
	account, err := s.store.GetByRefreshTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	return s.store.ClearRefreshSession(ctx, account.ID)
}

func (s *TokenService) signAccessToken(account *domain.Account, now time.Time) (string, time.Time, error) {
	expiry := now.Add(s.config.AccessTokenTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		Email:    account.Email,
		Role:     account.Role,
		Verified: account.Verified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiry, nil
}
