package verification

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/middleware"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
)

// Handler handles email verification and password reset endpoints.
type Handler struct {
	logger              *slog.Logger
	authService         *auth.AuthService
	verificationService *auth.VerificationService
}

// NewHandler creates a new verification handler.
func NewHandler(logger *slog.Logger, authService *auth.AuthService, verificationService *auth.VerificationService) *Handler {
	return &Handler{
		logger:              logger,
		authService:         authService,
		verificationService: verificationService,
	}
}

// VerifyEmailRequest carries the raw verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyEmail consumes an email-verification token.
// POST /v1/auth/verify-email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.verificationService.ConsumeVerification(r.Context(), req.Token)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"email":    account.Email,
		"verified": true,
	})
}

// ResendVerification issues a fresh verification token for the
// authenticated account, superseding any earlier one.
// POST /v1/auth/resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.authService.ResendVerification(r.Context(), accountID); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetRequestRequest carries the email to send a reset token to.
type ResetRequestRequest struct {
	Email string `json:"email" validate:"required"`
}

// RequestReset issues and mails a password-reset token. Always returns 204 so
// the endpoint cannot be used to enumerate accounts.
// POST /v1/auth/reset-request
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := auth.RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if err := h.authService.RequestPasswordReset(r.Context(), req.Email, meta); err != nil {
		h.logger.Error("request password reset", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetRequest carries a reset token and the new password.
type ResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Reset consumes a password-reset token and installs the new password.
// POST /v1/auth/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := auth.RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if _, err := h.verificationService.ConsumeReset(r.Context(), req.Token, req.NewPassword, meta); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
