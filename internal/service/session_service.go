package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/mapper"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxParticipants applies when a session is created without a capacity
const DefaultMaxParticipants = 10

const scheduleLayout = "2006-01-02 15:04"

type SessionService struct {
	sessionRepo     *repository.SessionRepository
	participantRepo *repository.ParticipantRepository
	userRepo        *repository.UserRepository
	messages        *MessageService
	mailer          *email.Mailer
	logger          *zap.Logger
}

func NewSessionService(
	sessionRepo *repository.SessionRepository,
	participantRepo *repository.ParticipantRepository,
	userRepo *repository.UserRepository,
	messages *MessageService,
	mailer *email.Mailer,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		messages:        messages,
		mailer:          mailer,
		logger:          logger,
	}
}

// List returns sessions matching filter; status defaults to active
func (s *SessionService) List(ctx context.Context, viewerID uuid.UUID, filter domain.SessionListFilter, page, pageSize int) ([]domain.SessionDTO, int64, error) {
	if filter.Status == "" {
		filter.Status = domain.SessionStatusActive
	}

	sessions, total, err := s.sessionRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	dtos, err := buildSessionDTOs(ctx, s.participantRepo, sessions, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return dtos, total, nil
}

// GetByID returns the session with its joined participants
func (s *SessionService) GetByID(ctx context.Context, id, viewerID uuid.UUID) (*domain.SessionDetailDTO, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListJoined(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	detail := &domain.SessionDetailDTO{
		Session:      mapper.ToSessionDTO(session, int64(len(participants))),
		Participants: make([]domain.ParticipantDTO, len(participants)),
		IsCreator:    session.CreatorID == viewerID,
	}
	for i := range participants {
		detail.Participants[i] = mapper.ToParticipantDTO(&participants[i])
		if participants[i].UserID == viewerID {
			detail.IsParticipant = true
		}
	}
	detail.Session.IsParticipant = detail.IsParticipant

	return detail, nil
}

// Create schedules a new session owned by creatorID
func (s *SessionService) Create(ctx context.Context, creatorID uuid.UUID, req *domain.SessionRequest) (*domain.SessionDTO, error) {
	session := &domain.StudySession{
		Status:    domain.SessionStatusActive,
		CreatorID: creatorID,
	}
	if err := applySessionRequest(session, req); err != nil {
		return nil, err
	}
	if session.MaxParticipants == 0 {
		session.MaxParticipants = DefaultMaxParticipants
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, mapper.FormatError("session", "create", err)
	}

	created, err := s.sessionRepo.GetByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}

	metrics.RecordSessionCreated()
	s.logger.Info("session created",
		zap.String("session_id", created.ID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.String("subject", created.Subject),
	)

	dto := mapper.ToSessionDTO(created, 0)
	return &dto, nil
}

// Update replaces the editable fields of an active session; only its creator may do so
func (s *SessionService) Update(ctx context.Context, id, userID uuid.UUID, req *domain.SessionRequest) (*domain.SessionDTO, error) {
	var joined int64
	err := s.sessionRepo.WithTransaction(ctx, func(tx *gorm.DB) error {
		sessions := repository.NewSessionRepository(tx)
		participants := repository.NewParticipantRepository(tx)

		session, err := sessions.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrSessionNotFound, "failed to get session")
		}
		if session.CreatorID != userID {
			return ErrNotSessionCreator
		}
		if !session.IsActive() {
			return ErrSessionNotActive
		}

		maxBefore := session.MaxParticipants
		if err := applySessionRequest(session, req); err != nil {
			return err
		}
		if session.MaxParticipants == 0 {
			session.MaxParticipants = maxBefore
		}

		joined, err = participants.CountJoined(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if int64(session.MaxParticipants) < joined {
			return ErrCapacityBelowJoined
		}

		if err := sessions.Update(ctx, session); err != nil {
			return mapper.FormatError("session", "update", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}

	s.logger.Info("session updated", zap.String("session_id", id.String()))

	dto := mapper.ToSessionDTO(updated, joined)
	return &dto, nil
}

// Cancel marks an active session cancelled and notifies its joined participants
func (s *SessionService) Cancel(ctx context.Context, id, userID uuid.UUID) error {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return err
	}
	if session.CreatorID != userID {
		return ErrNotSessionCreator
	}
	if !session.IsActive() {
		return ErrSessionNotActive
	}

	if err := s.sessionRepo.UpdateStatus(ctx, id, domain.SessionStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}
	session.Status = domain.SessionStatusCancelled

	s.logger.Info("session cancelled", zap.String("session_id", id.String()))

	participants, err := s.participantRepo.ListJoined(ctx, id)
	if err != nil {
		s.logger.Error("failed to list participants for cancellation notice",
			zap.String("session_id", id.String()),
			zap.Error(err),
		)
		return nil
	}
	for _, p := range participants {
		if p.User == nil || !p.User.IsActive {
			continue
		}
		if err := s.mailer.SendSessionCancelled(ctx, p.User, session); err != nil {
			s.logger.Warn("failed to send cancellation notice",
				zap.String("session_id", id.String()),
				zap.String("user_id", p.UserID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Join adds userID to the session. The capacity check and the insert run under a row lock.
func (s *SessionService) Join(ctx context.Context, id, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, ErrUserNotFound, "failed to get user")
	}

	err = s.sessionRepo.WithTransaction(ctx, func(tx *gorm.DB) error {
		sessions := repository.NewSessionRepository(tx)
		participants := repository.NewParticipantRepository(tx)

		session, err := sessions.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, ErrSessionNotFound, "failed to get session")
		}
		if !session.IsActive() {
			return ErrSessionNotActive
		}
		if session.CreatorID == userID {
			return ErrCreatorCannotJoin
		}

		existing, err := participants.Get(ctx, id, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to get participation: %w", err)
		}
		if existing != nil && existing.Status == domain.ParticipantStatusJoined {
			return ErrAlreadyJoined
		}

		count, err := participants.CountJoined(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if count >= int64(session.MaxParticipants) {
			return ErrSessionFull
		}

		now := time.Now().UTC()
		if existing != nil {
			return participants.Rejoin(ctx, existing.ID, now)
		}
		return participants.Create(ctx, &domain.SessionParticipant{
			SessionID: id,
			UserID:    userID,
			Status:    domain.ParticipantStatusJoined,
			JoinedAt:  now,
		})
	})
	if err != nil {
		metrics.RecordMembership("join", membershipResult(err))
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyJoined
		}
		return err
	}

	metrics.RecordMembership("join", "ok")
	s.logger.Info("user joined session",
		zap.String("session_id", id.String()),
		zap.String("user_id", userID.String()),
	)
	s.postSystemMessage(ctx, id, userID, fmt.Sprintf("%s joined the session", user.Name))
	return nil
}

// Leave removes userID from the session; the participation row is kept with status left
func (s *SessionService) Leave(ctx context.Context, id, userID uuid.UUID) error {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return err
	}
	if session.CreatorID == userID {
		return ErrCreatorCannotLeave
	}

	participant, err := s.participantRepo.Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordMembership("leave", "not_participant")
			return ErrNotParticipant
		}
		return fmt.Errorf("failed to get participation: %w", err)
	}
	if participant.Status != domain.ParticipantStatusJoined {
		metrics.RecordMembership("leave", "not_participant")
		return ErrNotParticipant
	}

	if err := s.participantRepo.Leave(ctx, participant.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to leave session: %w", err)
	}
	if s.messages != nil {
		s.messages.Revoke(id, userID)
	}

	metrics.RecordMembership("leave", "ok")
	s.logger.Info("user left session",
		zap.String("session_id", id.String()),
		zap.String("user_id", userID.String()),
	)

	name := "A participant"
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		name = user.Name
	}
	s.postSystemMessage(ctx, id, userID, fmt.Sprintf("%s left the session", name))
	return nil
}

func (s *SessionService) getSession(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrSessionNotFound, "failed to get session")
	}
	return session, nil
}

func (s *SessionService) postSystemMessage(ctx context.Context, sessionID, userID uuid.UUID, text string) {
	if s.messages == nil {
		return
	}
	if _, err := s.messages.PostSystem(ctx, sessionID, userID, text); err != nil {
		s.logger.Warn("failed to post system message",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
}

// applySessionRequest copies the request onto session, parsing date and start time as UTC
func applySessionRequest(session *domain.StudySession, req *domain.SessionRequest) error {
	startsAt, err := time.ParseInLocation(scheduleLayout, req.Date+" "+req.StartTime, time.UTC)
	if err != nil {
		return ErrInvalidSchedule
	}
	if req.IsOnline && strings.TrimSpace(req.MeetingLink) == "" {
		return ErrMeetingLinkRequired
	}

	tags := make(domain.StringList, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	session.Title = strings.TrimSpace(req.Title)
	session.Description = strings.TrimSpace(req.Description)
	session.Subject = strings.TrimSpace(req.Subject)
	session.StartsAt = startsAt
	session.DurationMinutes = req.DurationMinutes
	session.MaxParticipants = req.MaxParticipants
	session.Location = strings.TrimSpace(req.Location)
	session.IsOnline = req.IsOnline
	session.MeetingLink = strings.TrimSpace(req.MeetingLink)
	session.Tags = tags
	return nil
}

// buildSessionDTOs maps sessions with participant counts and the viewer's membership
func buildSessionDTOs(ctx context.Context, participantRepo *repository.ParticipantRepository, sessions []domain.StudySession, viewerID uuid.UUID) ([]domain.SessionDTO, error) {
	ids := make([]uuid.UUID, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
	}

	counts, err := participantRepo.CountJoinedBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	joined, err := participantRepo.JoinedSessionIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load participation: %w", err)
	}

	dtos := make([]domain.SessionDTO, len(sessions))
	for i := range sessions {
		dtos[i] = mapper.ToSessionDTO(&sessions[i], counts[sessions[i].ID])
		dtos[i].IsParticipant = joined[sessions[i].ID]
	}
	return dtos, nil
}

func membershipResult(err error) string {
	switch {
	case errors.Is(err, ErrSessionFull):
		return "full"
	case errors.Is(err, ErrAlreadyJoined), errors.Is(err, gorm.ErrDuplicatedKey):
		return "already_joined"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionNotActive), errors.Is(err, ErrCreatorCannotJoin):
		return "rejected"
	default:
		return "error"
	}
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and wraps anything else
func notFoundOr(err, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
