package handler

import (
	"errors"
	"net/http"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"go.uber.org/zap"
)

// AdminHandler exposes maintenance endpoints guarded by the API key
type AdminHandler struct {
	adminService *service.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

type testUserResponse struct {
	Message  string              `json:"message"`
	User     domain.AdminUserDTO `json:"user"`
	Password string              `json:"password"`
}

// CreateTestUser godoc
// @Summary Create the shared test account
// @Description Returns 201 when created and 200 when it already exists. Unavailable in production.
// @Tags Admin
// @Produce json
// @Success 200 {object} testUserResponse
// @Success 201 {object} testUserResponse
// @Failure 403 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /admin/test-user [post]
// @Router /admin/create-test-user [post]
func (h *AdminHandler) CreateTestUser(w http.ResponseWriter, r *http.Request) {
	result, err := h.adminService.EnsureTestUser(r.Context())
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	resp := testUserResponse{User: result.User, Password: result.Password}
	if !result.Created {
		resp.Message = "Test user already exists"
		respondJSON(w, http.StatusOK, resp)
		return
	}
	resp.Message = "Test user created successfully"
	respondJSON(w, http.StatusCreated, resp)
}

// InitDatabase godoc
// @Summary Apply database migrations
// @Tags Admin
// @Produce json
// @Success 200 {object} domain.MessageResponse
// @Failure 403 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /admin/init-db [post]
func (h *AdminHandler) InitDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.InitDatabase(r.Context()); err != nil {
		h.handleAdminError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Database initialized successfully")
}

// ListUsers godoc
// @Summary List all users
// @Tags Admin
// @Produce json
// @Success 200 {array} domain.AdminUserDTO
// @Failure 403 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		h.handleAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) handleAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProductionAdminAccess):
		respondWithError(w, http.StatusForbidden, "Admin endpoints are disabled in production")
	default:
		h.logger.Error("admin handler error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
