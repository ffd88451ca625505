package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"go.uber.org/zap"
)

// SessionHandler handles study session CRUD and membership
type SessionHandler struct {
	sessionService *service.SessionService
	logger         *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// ListSessions godoc
// @Summary List study sessions
// @Description Paginated sessions, newest first
// @Tags Sessions
// @Produce json
// @Param subject query string false "Subject contains (case-insensitive)"
// @Param date query string false "Session date (YYYY-MM-DD)"
// @Param creatorId query string false "Creator user ID"
// @Param status query string false "Status" Enums(active, cancelled, completed) default(active)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.SessionListFilter{
		Subject: q.Get("subject"),
		Status:  domain.SessionStatus(q.Get("status")),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid status: must be one of active, cancelled, completed")
		return
	}
	if v := q.Get("date"); v != "" {
		date, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date: expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if v := q.Get("creatorId"); v != "" {
		creatorID, err := uuid.Parse(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid creatorId: must be a valid UUID")
			return
		}
		filter.CreatorID = &creatorID
	}

	page, pageSize := parsePagination(r, defaultPageSize)
	sessions, total, err := h.sessionService.List(r.Context(), userCtx.UserID, filter, page, pageSize)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondPaginated(w, sessions, total, page, pageSize)
}

// GetSession godoc
// @Summary Get a study session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.SessionDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	detail, err := h.sessionService.GetByID(r.Context(), id, userCtx.UserID)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// CreateSession godoc
// @Summary Create a study session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body domain.SessionRequest true "Session data"
// @Success 201 {object} domain.SessionDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req domain.SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.sessionService.Create(r.Context(), userCtx.UserID, &req)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+session.ID.String())
	respondJSON(w, http.StatusCreated, session)
}

// UpdateSession godoc
// @Summary Update a study session
// @Description Creator only; the session must be active
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body domain.SessionRequest true "Session data"
// @Success 200 {object} domain.SessionDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id} [put]
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	var req domain.SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.sessionService.Update(r.Context(), id, userCtx.UserID, &req)
	if err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// CancelSession godoc
// @Summary Cancel a study session
// @Description Soft cancel; joined participants are notified by email
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.sessionService.Cancel(r.Context(), id, userCtx.UserID); err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Session cancelled successfully")
}

// JoinSession godoc
// @Summary Join a study session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Session full or already joined"
// @Security BearerAuth
// @Router /sessions/{id}/join [post]
func (h *SessionHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.sessionService.Join(r.Context(), id, userCtx.UserID); err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Successfully joined session")
}

// LeaveSession godoc
// @Summary Leave a study session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id}/leave [post]
func (h *SessionHandler) LeaveSession(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.sessionService.Leave(r.Context(), id, userCtx.UserID); err != nil {
		h.handleSessionError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Successfully left session")
}

func (h *SessionHandler) handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrNotSessionCreator):
		respondWithError(w, http.StatusForbidden, "Only the session creator can modify this session")
	case errors.Is(err, service.ErrSessionNotActive):
		respondWithError(w, http.StatusBadRequest, "Session is not active")
	case errors.Is(err, service.ErrMeetingLinkRequired):
		respondWithError(w, http.StatusBadRequest, "Meeting link is required for online sessions")
	case errors.Is(err, service.ErrCapacityBelowJoined):
		respondWithError(w, http.StatusBadRequest, "Max participants cannot be lower than the current participant count")
	case errors.Is(err, service.ErrInvalidSchedule):
		respondWithError(w, http.StatusBadRequest, "Invalid date or start time")
	case errors.Is(err, service.ErrCreatorCannotJoin):
		respondWithError(w, http.StatusBadRequest, "You cannot join your own session")
	case errors.Is(err, service.ErrCreatorCannotLeave):
		respondWithError(w, http.StatusBadRequest, "Session creator cannot leave the session")
	case errors.Is(err, service.ErrNotParticipant):
		respondWithError(w, http.StatusBadRequest, "You are not a participant of this session")
	case errors.Is(err, service.ErrSessionFull):
		respondWithError(w, http.StatusConflict, "Session is full")
	case errors.Is(err, service.ErrAlreadyJoined):
		respondWithError(w, http.StatusConflict, "You have already joined this session")
	default:
		h.logger.Error("session handler error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
