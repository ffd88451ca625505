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

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks a user up by email; emails are stored lower-case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetActiveByID returns the user only when the account is active
func (r *UserRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "verification_token_hash = ?", hash).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetTokenHash returns the user owning an unexpired reset token
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expires_at > ?", hash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateFields applies a partial update; keys are column names
func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search finds active users other than excludeID whose name, email or university contains query
func (r *UserRepository) Search(ctx context.Context, query string, excludeID uuid.UUID, page, pageSize int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	pattern := containsPattern(query)
	q := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("is_active = ? AND id <> ?", true, excludeID).
		Where("(LOWER(name) LIKE ?"+likeEscape+" OR LOWER(email) LIKE ?"+likeEscape+" OR LOWER(university) LIKE ?"+likeEscape+")",
			pattern, pattern, pattern)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := q.Order("name ASC").Offset(offset).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// List returns every user, newest first
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}
