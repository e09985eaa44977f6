package tfa

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http/middleware"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
)

// Handler handles two-factor enrollment endpoints. All routes require
// authentication.
type Handler struct {
	logger      *slog.Logger
	tfaService  *auth.TFAService
	authService *auth.AuthService
}

// NewHandler creates a new two-factor handler.
func NewHandler(logger *slog.Logger, tfaService *auth.TFAService, authService *auth.AuthService) *Handler {
	return &Handler{logger: logger, tfaService: tfaService, authService: authService}
}

// StatusResponse reports the two-factor state of the account.
type StatusResponse struct {
	Enabled bool `json:"enabled"`
	Pending bool `json:"pending"`
}

// Status returns the two-factor state.
// GET /v1/me/tfa/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
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
	httputil.JSON(w, http.StatusOK, StatusResponse{
		Enabled: account.TFAEnabled,
		Pending: account.TFAPending(),
	})
}

// SetupResponse carries the secret and provisioning URI, returned exactly
// once at enrollment.
type SetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Setup starts enrollment: generates and stores an unconfirmed secret.
// POST /v1/me/tfa/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	enrollment, err := h.tfaService.BeginEnrollment(r.Context(), accountID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, SetupResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
	})
}

// EnableRequest carries the first code from the authenticator app.
type EnableRequest struct {
	Code string `json:"code" validate:"required"`
}

// Enable confirms enrollment with a valid code.
// POST /v1/me/tfa/enable
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EnableRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tfaService.ConfirmEnrollment(r.Context(), accountID, req.Code); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Disable turns off two-factor and discards the secret.
// POST /v1/me/tfa/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.tfaService.Disable(r.Context(), accountID); err != nil {
		httputil.DomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
