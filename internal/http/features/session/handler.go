package session

import (
	"log/slog"
	"net/http"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/httputil"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
)

// Handler handles login, refresh, and logout endpoints.
type Handler struct {
	logger       *slog.Logger
	authService  *auth.AuthService
	tokenService *auth.TokenService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, authService *auth.AuthService, tokenService *auth.TokenService) *Handler {
	return &Handler{
		logger:       logger,
		authService:  authService,
		tokenService: tokenService,
		cookieConfig: httputil.DefaultCookieConfig(),
	}
}

// LoginRequest represents a login request. TFACode is required only when the
// account has two-factor enabled.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	TFACode  string `json:"tfa_code,omitempty"`
}

// RefreshRequest represents a token refresh request (mobile clients).
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents a logout request (mobile clients).
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents a token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login authenticates an account.
// POST /v1/auth/login
//
// For web clients the refresh token is set as an HttpOnly cookie; for mobile
// clients (X-Client-Type: mobile) it is returned in the response body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.authService.Login(r.Context(), auth.LoginParams{
		Email:    req.Email,
		Password: req.Password,
		TFACode:  req.TFACode,
	}, auth.RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()})
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.writeTokenResponse(w, r, tokens, http.StatusOK)
}

// Refresh exchanges a refresh token for a fresh access token.
// POST /v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.readRefreshToken(w, r)
	if refreshToken == "" {
		return
	}

	tokens, err := h.tokenService.Rotate(r.Context(), refreshToken)
	if err != nil {
		if !httputil.IsMobileClient(r) {
			httputil.ClearRefreshCookie(w, h.cookieConfig)
		}
		httputil.DomainError(w, err)
		return
	}

	h.writeTokenResponse(w, r, tokens, http.StatusOK)
}

// Logout revokes the presented refresh session. Idempotent: unknown tokens
// still return 204.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if httputil.IsMobileClient(r) {
		var req LogoutRequest
		if err := httputil.Decode(r, &req); err == nil {
			refreshToken = req.RefreshToken
		}
	} else {
		refreshToken, _ = httputil.GetRefreshTokenFromCookie(r)
	}

	if refreshToken != "" {
		if err := h.tokenService.RevokeByToken(r.Context(), refreshToken); err != nil {
			h.logger.Error("revoke refresh session", "error", err)
		}
	}

	if !httputil.IsMobileClient(r) {
		httputil.ClearRefreshCookie(w, h.cookieConfig)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) readRefreshToken(w http.ResponseWriter, r *http.Request) string {
	if httputil.IsMobileClient(r) {
		var req RefreshRequest
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return ""
		}
		if req.RefreshToken == "" {
			httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
			return ""
		}
		return req.RefreshToken
	}

	refreshToken, ok := httputil.GetRefreshTokenFromCookie(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "refresh token not found")
		return ""
	}
	return refreshToken
}

func (h *Handler) writeTokenResponse(w http.ResponseWriter, r *http.Request, tokens *domain.TokenPair, status int) {
	if httputil.IsMobileClient(r) {
		httputil.JSON(w, status, TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			TokenType:    tokens.TokenType,
			ExpiresIn:    tokens.ExpiresIn,
		})
		return
	}

	httputil.SetRefreshCookie(w, tokens.RefreshToken, h.tokenService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, status, TokenResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   tokens.TokenType,
		ExpiresIn:   tokens.ExpiresIn,
	})
}
