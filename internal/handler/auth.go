package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "register")
		return
	}
	WriteData(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "login")
		return
	}
	WriteData(w, http.StatusOK, result)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "refresh_token", Message: "refresh_token is required"}}))
		return
	}

	tokens, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err, "refresh")
		return
	}
	WriteData(w, http.StatusOK, tokens)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, r, err, "logout")
		return
	}
	WriteNoContent(w)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.authService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "me")
		return
	}
	WriteData(w, http.StatusOK, me)
}

// RequestVerification handles POST /api/auth/verify-email/request
func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.RequestEmailVerification(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, r, err, "request email verification")
		return
	}
	WriteJSON(w, http.StatusAccepted, DataResponse{Data: map[string]string{"status": "sent"}})
}

// ConfirmVerification handles POST /api/auth/verify-email/confirm
func (h *AuthHandler) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "token", Message: "token is required"}}))
		return
	}

	profile, err := h.authService.ConfirmEmailVerification(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err, "confirm email verification")
		return
	}
	WriteData(w, http.StatusOK, profile)
}
