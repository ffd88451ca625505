package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves profiles, avatars, per-user session lists and user search
type UserHandler struct {
	userService *service.UserService
	maxUploadMB int64
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *service.UserService, maxUploadMB int64, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

// GetProfile godoc
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userCtx.UserID)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Description Only the supplied fields are changed
// @Tags Users
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req domain.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userCtx.UserID, &req)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "JPEG, PNG, GIF or WebP image"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /users/profile/avatar [post]
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: avatar field is required")
		return
	}
	defer file.Close()

	profile, err := h.userService.UploadAvatar(r.Context(), userCtx.UserID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// GetAvatar godoc
// @Summary Download a user's profile picture
// @Tags Users
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param id path string true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /users/{id}/avatar [get]
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "user")
	if !ok {
		return
	}

	reader, contentType, err := h.userService.GetAvatar(r.Context(), id)
	if err != nil {
		h.handleUserError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream avatar", zap.String("user_id", id.String()), zap.Error(err))
	}
}

// ListSessions godoc
// @Summary List the caller's sessions
// @Tags Users
// @Produce json
// @Param type query string false "Which sessions" Enums(created, joined, all) default(all)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /users/sessions [get]
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	kind := domain.UserSessionsType(r.URL.Query().Get("type"))
	switch kind {
	case "":
		kind = domain.UserSessionsAll
	case domain.UserSessionsCreated, domain.UserSessionsJoined, domain.UserSessionsAll:
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid type: must be one of created, joined, all")
		return
	}

	page, pageSize := parsePagination(r, defaultPageSize)
	sessions, total, err := h.userService.ListSessions(r.Context(), userCtx.UserID, kind, page, pageSize)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondPaginated(w, sessions, total, page, pageSize)
}

// Stats godoc
// @Summary Activity statistics of the caller
// @Tags Users
// @Produce json
// @Success 200 {object} domain.UserStatsDTO
// @Security BearerAuth
// @Router /users/stats [get]
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.userService.Stats(r.Context(), userCtx.UserID)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Search godoc
// @Summary Search other users
// @Description Matches name, email or university, case-insensitive
// @Tags Users
// @Produce json
// @Param q query string true "Search text"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /users/search [get]
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, pageSize := parsePagination(r, defaultPageSize)
	users, total, err := h.userService.Search(r.Context(), userCtx.UserID, r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondPaginated(w, users, total, page, pageSize)
}

// GetPublicProfile godoc
// @Summary Public profile of a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} domain.PublicProfileDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "user")
	if !ok {
		return
	}

	profile, err := h.userService.GetPublicProfile(r.Context(), id, userCtx.UserID)
	if err != nil {
		h.handleUserError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrAvatarNotFound):
		respondWithError(w, http.StatusNotFound, "Avatar not found")
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		respondWithError(w, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, service.ErrEmptySearchQuery):
		respondWithError(w, http.StatusBadRequest, "Search query is required")
	case errors.Is(err, service.ErrUnsupportedAvatarType):
		respondWithError(w, http.StatusBadRequest, "Avatar must be a JPEG, PNG, GIF or WebP image")
	default:
		h.logger.Error("user handler error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
