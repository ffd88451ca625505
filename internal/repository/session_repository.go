package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTransaction executes operations within a transaction
func (r *SessionRepository) WithTransaction(ctx context.Context, fn func(*gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.StudySession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	var session domain.StudySession
	err := r.db.WithContext(ctx).Preload("Creator").First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetForUpdate loads the session with a row lock; call it inside a transaction
func (r *SessionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.StudySession, error) {
	var session domain.StudySession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.StudySession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	return r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// List returns sessions matching filter, newest first
func (r *SessionRepository) List(ctx context.Context, filter domain.SessionListFilter, page, pageSize int) ([]domain.StudySession, int64, error) {
	var sessions []domain.StudySession
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.StudySession{})
	query = applySessionFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

func applySessionFilter(query *gorm.DB, filter domain.SessionListFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		query = query.Where("LOWER(subject) LIKE ?"+likeEscape, containsPattern(subject))
	}
	if filter.Date != nil {
		dayStart := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, time.UTC)
		query = query.Where("starts_at >= ? AND starts_at < ?", dayStart, dayStart.AddDate(0, 0, 1))
	}
	if filter.CreatorID != nil {
		query = query.Where("creator_id = ?", *filter.CreatorID)
	}
	return query
}

// ListCreatedBy returns sessions created by userID in any status, newest first
func (r *SessionRepository) ListCreatedBy(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.StudySession, int64, error) {
	var sessions []domain.StudySession
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.StudySession{}).Where("creator_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

// ListJoinedBy returns sessions where userID is a joined participant, most recently joined first
func (r *SessionRepository) ListJoinedBy(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.StudySession, int64, error) {
	var sessions []domain.StudySession
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Joins("JOIN session_participants sp ON sp.session_id = study_sessions.id").
		Where("sp.user_id = ? AND sp.status = ?", userID, domain.ParticipantStatusJoined)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Creator").
		Select("study_sessions.*").
		Order("sp.joined_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

// ListRecentByCreator returns the newest active sessions created by creatorID
func (r *SessionRepository) ListRecentByCreator(ctx context.Context, creatorID uuid.UUID, limit int) ([]domain.StudySession, error) {
	var sessions []domain.StudySession
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("creator_id = ? AND status = ?", creatorID, domain.SessionStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// ListDueForReminder returns active sessions starting in (from, until] that have not been reminded
func (r *SessionRepository) ListDueForReminder(ctx context.Context, from, until time.Time) ([]domain.StudySession, error) {
	var sessions []domain.StudySession
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL", domain.SessionStatusActive).
		Where("starts_at > ? AND starts_at <= ?", from, until).
		Order("starts_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at).Error
}

// ListActiveStartedBefore returns active sessions that started at or before t.
// End time depends on duration, so callers decide which of them are over.
func (r *SessionRepository) ListActiveStartedBefore(ctx context.Context, t time.Time) ([]domain.StudySession, error) {
	var sessions []domain.StudySession
	err := r.db.WithContext(ctx).
		Where("status = ? AND starts_at <= ?", domain.SessionStatusActive, t).
		Find(&sessions).Error
	return sessions, err
}

// MarkCompleted moves the given active sessions to completed and returns how many changed
func (r *SessionRepository) MarkCompleted(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Where("id IN ? AND status = ?", ids, domain.SessionStatusActive).
		Update("status", domain.SessionStatusCompleted)
	return result.RowsAffected, result.Error
}

// CountCreatedBy counts every session userID created
func (r *SessionRepository) CountCreatedBy(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Where("creator_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountUpcomingFor counts active sessions starting after now that userID created or joined
func (r *SessionRepository) CountUpcomingFor(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.involving(ctx, userID).
		Where("study_sessions.status = ? AND study_sessions.starts_at > ?", domain.SessionStatusActive, now).
		Count(&count).Error
	return count, err
}

// SumCompletedMinutesFor sums durations of completed sessions userID created or joined
func (r *SessionRepository) SumCompletedMinutesFor(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.involving(ctx, userID).
		Where("study_sessions.status = ?", domain.SessionStatusCompleted).
		Select("COALESCE(SUM(study_sessions.duration_minutes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *SessionRepository) involving(ctx context.Context, userID uuid.UUID) *gorm.DB {
	joined := r.db.Model(&domain.SessionParticipant{}).
		Select("session_id").
		Where("user_id = ? AND status = ?", userID, domain.ParticipantStatusJoined)

	return r.db.WithContext(ctx).Model(&domain.StudySession{}).
		Where("(study_sessions.creator_id = ? OR study_sessions.id IN (?))", userID, joined)
}
