package handlers

import (
	"encoding/json"
	"net/http"

	"pubhook/internal/pkg/errors"
	"pubhook/internal/platform/auth"
)

type AuthHandler struct {
	authenticator *auth.Authenticator
	tokenSvc      *auth.TokenService
}

func NewAuthHandler(authenticator *auth.Authenticator, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, tokenSvc: tokenSvc}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	capabilities, err := h.authenticator.Authenticate(req.Username, req.Password)
	if err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid username or password", nil)
		return
	}

	token, err := h.tokenSvc.GenerateAccessToken(req.Username, capabilities)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "Bearer"})
}
