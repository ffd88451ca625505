package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/mapper"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"github.com/studybuddy/studybuddy-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	avatarFolder          = "avatars"
	publicProfileSessions = 5
)

// avatarExtensions lists the accepted avatar content types and the extension stored with each
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Relations reported for each session of the "all" listing
const (
	RelationCreated   = "created"
	RelationJoined    = "joined"
	RelationAvailable = "available"
)

type UserService struct {
	userRepo        *repository.UserRepository
	sessionRepo     *repository.SessionRepository
	participantRepo *repository.ParticipantRepository
	messageRepo     *repository.MessageRepository
	storage         storage.Storage
	logger          *zap.Logger
}

func NewUserService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	participantRepo *repository.ParticipantRepository,
	messageRepo *repository.MessageRepository,
	store storage.Storage,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		storage:         store,
		logger:          logger,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "failed to get user")
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// UpdateProfile changes only the fields present in req
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *domain.UpdateProfileRequest) (*domain.UserDTO, error) {
	if req.IsEmpty() {
		return nil, ErrNoFieldsToUpdate
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.University != nil {
		fields["university"] = strings.TrimSpace(*req.University)
	}
	if req.Bio != nil {
		fields["bio"] = strings.TrimSpace(*req.Bio)
	}

	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "failed to update profile")
	}

	s.logger.Info("profile updated", zap.String("user_id", userID.String()))
	return s.GetProfile(ctx, userID)
}

// UploadAvatar stores a new avatar image and removes the previous one
func (s *UserService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, data io.Reader) (*domain.UserDTO, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, ErrUnsupportedAvatarType
	}
	ext, ok := avatarExtensions[mediaType]
	if !ok {
		return nil, ErrUnsupportedAvatarType
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "failed to get user")
	}

	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	obj, err := s.storage.Put(ctx, avatarFolder, base+ext, mediaType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	err = s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"avatar_url":  fmt.Sprintf("/api/v1/users/%s/avatar", userID),
		"avatar_path": obj.Path,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, obj.Path); delErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", zap.String("path", obj.Path), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	if user.AvatarPath != "" {
		if err := s.storage.Delete(ctx, user.AvatarPath); err != nil {
			s.logger.Warn("failed to delete previous avatar",
				zap.String("user_id", userID.String()),
				zap.String("path", user.AvatarPath),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("avatar uploaded",
		zap.String("user_id", userID.String()),
		zap.Int64("size", obj.Size),
	)
	return s.GetProfile(ctx, userID)
}

// GetAvatar opens the stored avatar of userID and reports its content type
func (s *UserService) GetAvatar(ctx context.Context, userID uuid.UUID) (io.ReadCloser, string, error) {
	user, err := s.userRepo.GetActiveByID(ctx, userID)
	if err != nil {
		return nil, "", notFoundOr(err, ErrUserNotFound, "failed to get user")
	}
	if user.AvatarPath == "" {
		return nil, "", ErrAvatarNotFound
	}

	rc, err := s.storage.Open(ctx, user.AvatarPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrAvatarNotFound
		}
		return nil, "", fmt.Errorf("failed to open avatar: %w", err)
	}

	contentType := mime.TypeByExtension(path.Ext(user.AvatarPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// ListSessions returns the caller's sessions of the requested kind
func (s *UserService) ListSessions(ctx context.Context, userID uuid.UUID, kind domain.UserSessionsType, page, pageSize int) ([]domain.SessionDTO, int64, error) {
	var (
		sessions []domain.StudySession
		total    int64
		err      error
	)

	switch kind {
	case domain.UserSessionsCreated:
		sessions, total, err = s.sessionRepo.ListCreatedBy(ctx, userID, page, pageSize)
	case domain.UserSessionsJoined:
		sessions, total, err = s.sessionRepo.ListJoinedBy(ctx, userID, page, pageSize)
	default:
		sessions, total, err = s.sessionRepo.List(ctx, domain.SessionListFilter{Status: domain.SessionStatusActive}, page, pageSize)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	dtos, err := buildSessionDTOs(ctx, s.participantRepo, sessions, userID)
	if err != nil {
		return nil, 0, err
	}

	for i := range dtos {
		switch {
		case dtos[i].CreatorID == userID:
			dtos[i].UserRelation = RelationCreated
		case dtos[i].IsParticipant:
			dtos[i].UserRelation = RelationJoined
		default:
			dtos[i].UserRelation = RelationAvailable
		}
	}
	return dtos, total, nil
}

// Stats summarises the activity of userID
func (s *UserService) Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStatsDTO, error) {
	var stats domain.UserStatsDTO
	var err error

	if stats.SessionsCreated, err = s.sessionRepo.CountCreatedBy(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count created sessions: %w", err)
	}
	if stats.SessionsJoined, err = s.participantRepo.CountJoinedByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count joined sessions: %w", err)
	}
	if stats.MessagesSent, err = s.messageRepo.CountByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if stats.UpcomingSessions, err = s.sessionRepo.CountUpcomingFor(ctx, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to count upcoming sessions: %w", err)
	}
	if stats.TotalStudyMinutes, err = s.sessionRepo.SumCompletedMinutesFor(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to sum study minutes: %w", err)
	}

	return &stats, nil
}

// Search finds other active users by name, email or university
func (s *UserService) Search(ctx context.Context, userID uuid.UUID, query string, page, pageSize int) ([]domain.PublicUserDTO, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrEmptySearchQuery
	}

	users, total, err := s.userRepo.Search(ctx, query, userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}

	dtos := make([]domain.PublicUserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToPublicUserDTO(&users[i])
	}
	return dtos, total, nil
}

// GetPublicProfile returns an active user's public profile and newest active sessions
func (s *UserService) GetPublicProfile(ctx context.Context, id, viewerID uuid.UUID) (*domain.PublicProfileDTO, error) {
	user, err := s.userRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	sessions, err := s.sessionRepo.ListRecentByCreator(ctx, id, publicProfileSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	dtos, err := buildSessionDTOs(ctx, s.participantRepo, sessions, viewerID)
	if err != nil {
		return nil, err
	}

	return &domain.PublicProfileDTO{
		User:     mapper.ToPublicUserDTO(user),
		Sessions: dtos,
	}, nil
}
