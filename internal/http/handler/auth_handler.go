package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"go.uber.org/zap"
)

const forgotPasswordMessage = "If an account exists with this email, a password reset link has been sent"

// AuthHandler handles registration, login and account token flows
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Creates an account, returns a token and sends a verification email
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "Registration data"
// @Success 201 {object} domain.AuthResponse
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Login godoc
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.AuthResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Always answers with the same message so account existence is not revealed
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.ForgotPasswordRequest true "Account email"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), &req); err != nil {
		h.logger.Error("failed to process password reset request", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	respondMessage(w, http.StatusOK, forgotPasswordMessage)
}

// ResetPassword godoc
// @Summary Reset a password with an emailed token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError "Invalid or expired token"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		h.handleAuthError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Password has been reset successfully")
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Tags Auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError "Invalid verification token"
// @Router /auth/verify-email/{token} [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.handleAuthError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Email verified successfully")
}

// Me godoc
// @Summary Get current authenticated user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Me(r.Context(), userCtx.UserID)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrAccountDeactivated):
		respondWithError(w, http.StatusUnauthorized, "Account is deactivated")
	case errors.Is(err, service.ErrInvalidResetToken):
		respondWithError(w, http.StatusBadRequest, "Invalid or expired reset token")
	case errors.Is(err, service.ErrInvalidVerifyToken):
		respondWithError(w, http.StatusBadRequest, "Invalid verification token")
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("auth handler error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
