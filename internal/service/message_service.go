package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/mapper"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	"github.com/studybuddy/studybuddy-api/internal/realtime"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventPublisher pushes session events to connected clients
type EventPublisher interface {
	Publish(sessionID uuid.UUID, event realtime.Event)
	Disconnect(sessionID, userID uuid.UUID)
}

type MessageService struct {
	sessionRepo     *repository.SessionRepository
	participantRepo *repository.ParticipantRepository
	messageRepo     *repository.MessageRepository
	publisher       EventPublisher
	logger          *zap.Logger
}

// NewMessageService creates the messaging service. publisher may be nil.
func NewMessageService(
	sessionRepo *repository.SessionRepository,
	participantRepo *repository.ParticipantRepository,
	messageRepo *repository.MessageRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		publisher:       publisher,
		logger:          logger,
	}
}

// Authorize returns the session when userID is its creator or a joined participant
func (s *MessageService) Authorize(ctx context.Context, sessionID, userID uuid.UUID) (*domain.StudySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.CreatorID == userID {
		return session, nil
	}

	joined, err := s.participantRepo.IsJoined(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if !joined {
		return nil, ErrMessageAccessDenied
	}
	return session, nil
}

// List returns a page of messages, oldest first within the page
func (s *MessageService) List(ctx context.Context, sessionID, userID uuid.UUID, page, pageSize int) ([]domain.MessageDTO, int64, error) {
	if _, err := s.Authorize(ctx, sessionID, userID); err != nil {
		return nil, 0, err
	}

	messages, total, err := s.messageRepo.ListBySession(ctx, sessionID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	dtos := make([]domain.MessageDTO, len(messages))
	for i := range messages {
		dtos[i] = mapper.ToMessageDTO(&messages[i])
	}
	return dtos, total, nil
}

// Send stores a user message and pushes it to subscribers of the session
func (s *MessageService) Send(ctx context.Context, sessionID, userID uuid.UUID, req *domain.SendMessageRequest) (*domain.MessageDTO, error) {
	session, err := s.Authorize(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusCancelled {
		return nil, ErrSessionCancelled
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	return s.store(ctx, &domain.SessionMessage{
		SessionID:   sessionID,
		UserID:      userID,
		Message:     text,
		MessageType: messageType,
	})
}

// Revoke drops the live connections of a user who lost access to the session
func (s *MessageService) Revoke(sessionID, userID uuid.UUID) {
	if s.publisher != nil {
		s.publisher.Disconnect(sessionID, userID)
	}
}

// PostSystem records a system message such as a join or leave notice
func (s *MessageService) PostSystem(ctx context.Context, sessionID, userID uuid.UUID, text string) (*domain.MessageDTO, error) {
	return s.store(ctx, &domain.SessionMessage{
		SessionID:   sessionID,
		UserID:      userID,
		Message:     text,
		MessageType: domain.MessageTypeSystem,
	})
}

func (s *MessageService) store(ctx context.Context, message *domain.SessionMessage) (*domain.MessageDTO, error) {
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, mapper.FormatError("message", "create", err)
	}

	stored, err := s.messageRepo.GetByID(ctx, message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload message: %w", err)
	}

	dto := mapper.ToMessageDTO(stored)
	metrics.RecordMessage(string(dto.MessageType))

	if s.publisher != nil {
		s.publisher.Publish(dto.SessionID, realtime.Event{Type: realtime.EventMessageCreated, Data: dto})
	}

	s.logger.Debug("message posted",
		zap.String("session_id", dto.SessionID.String()),
		zap.String("user_id", dto.UserID.String()),
		zap.String("type", string(dto.MessageType)),
	)
	return &dto, nil
}
