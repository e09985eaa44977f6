package http

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/config"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/features/account"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/features/federated"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/features/session"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/features/tfa"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/features/verification"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/middleware"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// RouterConfig holds the services wired into the router.
type RouterConfig struct {
	Logger              *slog.Logger
	AuthService         *auth.AuthService
	TokenService        *auth.TokenService
	TFAService          *auth.TFAService
	VerificationService *auth.VerificationService
	FederatedService    *auth.FederatedService
	GoogleVerifier      *auth.GoogleVerifier
	SecurityHeaders     config.SecurityHeadersConfig
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	rateLimiters := middleware.CreateRateLimiters(cfg.Logger)
	requireAuth := middleware.Auth(cfg.TokenService)

	accountHandler := account.NewHandler(cfg.Logger, cfg.AuthService)
	sessionHandler := session.NewHandler(cfg.Logger, cfg.AuthService, cfg.TokenService)
	verificationHandler := verification.NewHandler(cfg.Logger, cfg.AuthService, cfg.VerificationService)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", accountHandler.Register)
		r.Post("/v1/auth/login", sessionHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["refresh"])
		r.Post("/v1/auth/refresh", sessionHandler.Refresh)
	})
	r.Post("/v1/auth/logout", sessionHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["reset"])
		r.Post("/v1/auth/reset-request", verificationHandler.RequestReset)
		r.Post("/v1/auth/reset", verificationHandler.Reset)
	})

	r.With(rateLimiters["verify"]).Post("/v1/auth/verify-email", verificationHandler.VerifyEmail)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["verify"])
		r.Post("/v1/auth/resend-verification", verificationHandler.ResendVerification)
	})

	if cfg.FederatedService != nil && cfg.GoogleVerifier != nil {
		federatedHandler := federated.NewHandler(cfg.Logger, cfg.FederatedService, cfg.TokenService, cfg.GoogleVerifier)
		r.With(rateLimiters["auth"]).Post("/v1/auth/google", federatedHandler.GoogleLogin)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["profile"])
		r.Get("/v1/me", accountHandler.Me)
		r.Post("/v1/me/password", accountHandler.ChangePassword)
	})

	if cfg.TFAService != nil {
		tfaHandler := tfa.NewHandler(cfg.Logger, cfg.TFAService, cfg.AuthService)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(rateLimiters["profile"])
			r.Get("/v1/me/tfa/status", tfaHandler.Status)
			r.Post("/v1/me/tfa/setup", tfaHandler.Setup)
			r.Post("/v1/me/tfa/enable", tfaHandler.Enable)
			r.Post("/v1/me/tfa/disable", tfaHandler.Disable)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Delete("/v1/accounts/{id}", accountHandler.Deactivate)
	})

	return r
}
