package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, participant *domain.SessionParticipant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(participant).Error
}

// Get returns the participation row of userID in sessionID regardless of status
func (r *ParticipantRepository) Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.SessionParticipant, error) {
	var participant domain.SessionParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// Rejoin flips a left participation back to joined
func (r *ParticipantRepository) Rejoin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    domain.ParticipantStatusJoined,
			"joined_at": at,
			"left_at":   nil,
		}).Error
}

func (r *ParticipantRepository) Leave(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  domain.ParticipantStatusLeft,
			"left_at": at,
		}).Error
}

// IsJoined reports whether userID currently participates in sessionID
func (r *ParticipantRepository) IsJoined(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("session_id = ? AND user_id = ? AND status = ?", sessionID, userID, domain.ParticipantStatusJoined).
		Count(&count).Error
	return count > 0, err
}

func (r *ParticipantRepository) CountJoined(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("session_id = ? AND status = ?", sessionID, domain.ParticipantStatusJoined).
		Count(&count).Error
	return count, err
}

// CountJoinedBySessions returns joined participant counts keyed by session id
func (r *ParticipantRepository) CountJoinedBySessions(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SessionID uuid.UUID
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Select("session_id, COUNT(*) AS count").
		Where("session_id IN ? AND status = ?", sessionIDs, domain.ParticipantStatusJoined).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.SessionID] = row.Count
	}
	return counts, nil
}

// JoinedSessionIDs returns which of sessionIDs userID has joined
func (r *ParticipantRepository) JoinedSessionIDs(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	joined := make(map[uuid.UUID]bool)
	if len(sessionIDs) == 0 {
		return joined, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("user_id = ? AND session_id IN ? AND status = ?", userID, sessionIDs, domain.ParticipantStatusJoined).
		Pluck("session_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		joined[id] = true
	}
	return joined, nil
}

// ListJoined returns the joined participants of a session with their users, earliest first
func (r *ParticipantRepository) ListJoined(ctx context.Context, sessionID uuid.UUID) ([]domain.SessionParticipant, error) {
	var participants []domain.SessionParticipant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ? AND status = ?", sessionID, domain.ParticipantStatusJoined).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// CountJoinedByUser counts sessions userID currently participates in
func (r *ParticipantRepository) CountJoinedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SessionParticipant{}).
		Where("user_id = ? AND status = ?", userID, domain.ParticipantStatusJoined).
		Count(&count).Error
	return count, err
}
