package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.SessionMessage) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SessionMessage, error) {
	var message domain.SessionMessage
	err := r.db.WithContext(ctx).Preload("User").First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListBySession pages through a session's messages from the newest and
// returns each page in chronological order
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, page, pageSize int) ([]domain.SessionMessage, int64, error) {
	var messages []domain.SessionMessage
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.SessionMessage{}).Where("session_id = ?", sessionID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("User").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, total, nil
}

func (r *MessageRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SessionMessage{}).
		Where("user_id = ? AND message_type <> ?", userID, domain.MessageTypeSystem).
		Count(&count).Error
	return count, err
}
