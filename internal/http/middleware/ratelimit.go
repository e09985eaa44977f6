package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration for one endpoint group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// CreateRateLimiters creates the per-group rate limiters.
func CreateRateLimiters(logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	return map[string]func(http.Handler) http.Handler{
		"auth":    RateLimit(RateLimitConfig{Requests: 10, Window: time.Minute, Logger: logger}),
		"reset":   RateLimit(RateLimitConfig{Requests: 5, Window: 15 * time.Minute, Logger: logger}),
		"verify":  RateLimit(RateLimitConfig{Requests: 10, Window: 15 * time.Minute, Logger: logger}),
		"refresh": RateLimit(RateLimitConfig{Requests: 30, Window: time.Minute, Logger: logger}),
		"profile": RateLimit(RateLimitConfig{Requests: 60, Window: time.Minute, Logger: logger}),
	}
}
