package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/database"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetupTestDB opens an isolated in-memory SQLite database with the full schema.
// A single connection is used so every query sees the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestUser inserts an active user with a unique email
func CreateTestUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()

	user := &domain.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", uuid.NewString()[:8], "student"),
		PasswordHash: "not-a-real-hash",
		University:   "Test University",
		IsActive:     true,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	return user
}

// CreateTestSession inserts an active session owned by creator, starting at startsAt
func CreateTestSession(t *testing.T, db *gorm.DB, creator *domain.User, title string, startsAt time.Time) *domain.StudySession {
	t.Helper()

	session := &domain.StudySession{
		Title:           title,
		Subject:         "Mathematics",
		StartsAt:        startsAt.UTC(),
		DurationMinutes: 60,
		MaxParticipants: 5,
		Location:        "Library",
		Tags:            domain.StringList{"exam"},
		Status:          domain.SessionStatusActive,
		CreatorID:       creator.ID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(session).Error)
	return session
}

// AddTestParticipant joins user to session
func AddTestParticipant(t *testing.T, db *gorm.DB, session *domain.StudySession, user *domain.User) *domain.SessionParticipant {
	t.Helper()

	participant := &domain.SessionParticipant{
		SessionID: session.ID,
		UserID:    user.ID,
		Status:    domain.ParticipantStatusJoined,
		JoinedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(participant).Error)
	return participant
}

// FutureTime returns a UTC time rounded to the minute, d from now
func FutureTime(d time.Duration) time.Time {
	return time.Now().UTC().Add(d).Truncate(time.Minute)
}
