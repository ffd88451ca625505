package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"go.uber.org/zap"
)

const defaultMessagePageSize = 50

// SocketServer upgrades a request into a realtime subscription for one session
type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, sessionID, userID uuid.UUID) error
}

// MessageHandler serves in-session chat over REST and WebSocket
type MessageHandler struct {
	messageService *service.MessageService
	sockets        SocketServer
	logger         *zap.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *service.MessageService, sockets SocketServer, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		sockets:        sockets,
		logger:         logger,
	}
}

// ListMessages godoc
// @Summary List session messages
// @Description Creator or joined participants only. Pages are counted from the newest message and returned oldest first.
// @Tags Messages
// @Produce json
// @Param id path string true "Session ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(50)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id}/messages [get]
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	page, pageSize := parsePagination(r, defaultMessagePageSize)
	messages, total, err := h.messageService.List(r.Context(), sessionID, userCtx.UserID, page, pageSize)
	if err != nil {
		h.handleMessageError(w, err)
		return
	}

	respondPaginated(w, messages, total, page, pageSize)
}

// SendMessage godoc
// @Summary Send a message to a session
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body domain.SendMessageRequest true "Message"
// @Success 201 {object} domain.MessageDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id}/messages [post]
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Length limits apply to the trimmed text
	req.Message = strings.TrimSpace(req.Message)
	if !validateRequest(w, &req) {
		return
	}

	message, err := h.messageService.Send(r.Context(), sessionID, userCtx.UserID, &req)
	if err != nil {
		h.handleMessageError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, message)
}

// Stream godoc
// @Summary Subscribe to session messages
// @Description WebSocket upgrade. Browsers may pass the token as access_token.
// @Tags Messages
// @Param id path string true "Session ID"
// @Param access_token query string false "JWT when the Authorization header cannot be set"
// @Success 101 "Switching Protocols"
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sessions/{id}/messages/ws [get]
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := parseUUIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if _, err := h.messageService.Authorize(r.Context(), sessionID, userCtx.UserID); err != nil {
		h.handleMessageError(w, err)
		return
	}

	// the upgrader has already answered the client when this fails
	if err := h.sockets.Serve(w, r, sessionID, userCtx.UserID); err != nil {
		h.logger.Warn("websocket connection failed",
			zap.String("session_id", sessionID.String()),
			zap.String("user_id", userCtx.UserID.String()),
			zap.Error(err),
		)
	}
}

func (h *MessageHandler) handleMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, service.ErrMessageAccessDenied):
		respondWithError(w, http.StatusForbidden, "Only session participants can access messages")
	case errors.Is(err, service.ErrSessionCancelled):
		respondWithError(w, http.StatusBadRequest, "Cannot send messages to a cancelled session")
	case errors.Is(err, service.ErrEmptyMessage):
		respondWithError(w, http.StatusBadRequest, "Message cannot be empty")
	default:
		h.logger.Error("message handler error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
