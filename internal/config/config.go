package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application configuration, loaded from environment variables.
type Config struct {
	ServerAddr string `env:"SERVER_ADDR, default=0.0.0.0"`
	ServerPort int    `env:"SERVER_PORT, default=8080"`
	AppBaseURL string `env:"APP_BASE_URL, default=http://localhost:8080"`

	Database DatabaseConfig
	JWT      JWTConfig
	Lockout  LockoutConfig
	Password PasswordConfig
	Tokens   TokenLifetimes
	SMTP     SMTPConfig
	Google   GoogleConfig
	Redis    RedisConfig
	TFA      TFAConfig
	Security SecurityHeadersConfig
	Audit    AuditConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=postgres"`
	Password string `env:"DB_PASSWORD, default=postgres"`
	Name     string `env:"DB_NAME, default=nutricoach"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET"`
	Issuer string `env:"JWT_ISSUER, default=nutricoach"`
}

// LockoutConfig holds brute-force lockout settings.
type LockoutConfig struct {
	Threshold int           `env:"LOCKOUT_THRESHOLD, default=5"`
	Duration  time.Duration `env:"LOCKOUT_DURATION, default=30m"`
}

// PasswordConfig holds password policy settings.
type PasswordConfig struct {
	MinLength        int  `env:"PASSWORD_MIN_LENGTH, default=8"`
	RequireUppercase bool `env:"PASSWORD_REQUIRE_UPPERCASE, default=true"`
	RequireLowercase bool `env:"PASSWORD_REQUIRE_LOWERCASE, default=true"`
	RequireNumber    bool `env:"PASSWORD_REQUIRE_NUMBER, default=true"`
	RequireSpecial   bool `env:"PASSWORD_REQUIRE_SPECIAL, default=true"`
}

// TokenLifetimes holds the lifetimes of the token kinds.
type TokenLifetimes struct {
	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL, default=30m"`
	RefreshTokenTTL      time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	EmailVerificationTTL time.Duration `env:"EMAIL_VERIFICATION_TTL, default=24h"`
	PasswordResetTTL     time.Duration `env:"PASSWORD_RESET_TTL, default=24h"`
}

// SMTPConfig holds outbound email settings. Optional: when the host is
// empty, emails are logged instead of sent.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	FromName string `env:"SMTP_FROM_NAME, default=NutriCoach"`
}

// GoogleConfig holds Google sign-in settings. Optional.
type GoogleConfig struct {
	ClientID        string   `env:"GOOGLE_CLIENT_ID"`
	MobileClientIDs []string `env:"GOOGLE_MOBILE_CLIENT_IDS"`
}

// RedisConfig holds Redis settings for the signup throttle. Optional.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// TFAConfig holds two-factor settings. The encryption key protects TOTP
// secrets at rest; required to enable two-factor endpoints.
type TFAConfig struct {
	EncryptionKeyHex string `env:"TFA_ENCRYPTION_KEY"`
}

// EncryptionKey decodes the hex key. Must be 64 hex chars (32 bytes).
func (c TFAConfig) EncryptionKey() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("TFA_ENCRYPTION_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TFA_ENCRYPTION_KEY must be 64-char hex (32 bytes)")
	}
	return key, nil
}

// SecurityHeadersConfig holds the browser security headers.
type SecurityHeadersConfig struct {
	Enabled            bool   `env:"SECURITY_HEADERS_ENABLED, default=true"`
	HSTSMaxAge         int    `env:"SECURITY_HSTS_MAX_AGE, default=31536000"`
	FrameOptions       string `env:"SECURITY_FRAME_OPTIONS, default=DENY"`
	ContentTypeOptions string `env:"SECURITY_CONTENT_TYPE_OPTIONS, default=nosniff"`
	ReferrerPolicy     string `env:"SECURITY_REFERRER_POLICY, default=strict-origin-when-cross-origin"`
}

// AuditConfig holds audit dispatcher settings.
type AuditConfig struct {
	Buffer int `env:"AUDIT_BUFFER, default=256"`
}

// HasSMTP reports whether outbound email is configured.
func (c *Config) HasSMTP() bool { return c.SMTP.Host != "" }

// HasGoogle reports whether Google sign-in is configured.
func (c *Config) HasGoogle() bool { return c.Google.ClientID != "" }

// HasRedis reports whether Redis is configured.
func (c *Config) HasRedis() bool { return c.Redis.Addr != "" }

// HasTFA reports whether two-factor endpoints can be enabled.
func (c *Config) HasTFA() bool { return c.TFA.EncryptionKeyHex != "" }

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &cfg, nil
}
