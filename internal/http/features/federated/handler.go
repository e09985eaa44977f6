package federated

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
)

// Handler handles federated sign-in endpoints.
type Handler struct {
	logger           *slog.Logger
	federatedService *auth.FederatedService
	tokenService     *auth.TokenService
	googleVerifier   *auth.GoogleVerifier
	cookieConfig     httputil.CookieConfig
}

// NewHandler creates a new federated sign-in handler.
func NewHandler(logger *slog.Logger, federatedService *auth.FederatedService, tokenService *auth.TokenService, googleVerifier *auth.GoogleVerifier) *Handler {
	return &Handler{
		logger:           logger,
		federatedService: federatedService,
		tokenService:     tokenService,
		googleVerifier:   googleVerifier,
		cookieConfig:     httputil.DefaultCookieConfig(),
	}
}

// GoogleLoginRequest carries a Google ID token.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// TokenResponse represents a token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// GoogleLogin signs in with a Google ID token, provisioning the account on
// first use.
// POST /v1/auth/google
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := auth.RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	tokens, err := h.federatedService.Login(r.Context(), h.googleVerifier, req.IDToken, meta)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	if httputil.IsMobileClient(r) {
		httputil.JSON(w, http.StatusOK, TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenType:    tokens.TokenType,
			ExpiresIn:    tokens.ExpiresIn,
		})
		return
	}

	httputil.SetRefreshCookie(w, tokens.RefreshToken, h.tokenService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, TokenResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   tokens.TokenType,
		ExpiresIn:   tokens.ExpiresIn,
	})
}
