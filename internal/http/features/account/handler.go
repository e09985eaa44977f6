package account

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/middleware"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler handles registration and account management endpoints.
type Handler struct {
	logger      *slog.Logger
	authService *auth.AuthService
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, authService *auth.AuthService) *Handler {
	return &Handler{logger: logger, authService: authService}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role,omitempty"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:       account.ID.String(),
		Email:    account.Email,
		Name:     account.Name,
		Role:     string(account.Role),
		Verified: account.Verified,
	}
}

// Register handles account registration.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	}, requestMeta(r))
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, toAccountResponse(account))
}

// Me returns the authenticated account.
// GET /v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.authService.GetAccount(r.Context(), accountID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toAccountResponse(account))
}

// ChangePasswordRequest represents an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword changes the password of the authenticated account.
// POST /v1/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword, requestMeta(r)); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deactivate disables an account. Admin only; enforced by RequireRole.
// DELETE /v1/accounts/{id}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.authService.Deactivate(r.Context(), accountID); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
}
