package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User is a registered student account
type User struct {
	BaseModel
	Name                  string     `gorm:"type:varchar(255);not null"`
	Email                 string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash          string     `gorm:"type:varchar(255);not null"`
	University            string     `gorm:"type:varchar(255)"`
	AvatarURL             string     `gorm:"type:varchar(500)"`
	AvatarPath            string     `gorm:"type:varchar(500)"`
	Bio                   string     `gorm:"type:text"`
	IsActive              bool       `gorm:"not null"`
	EmailVerified         bool       `gorm:"not null"`
	VerificationTokenHash *string    `gorm:"type:varchar(64);index"`
	ResetTokenHash        *string    `gorm:"type:varchar(64);index"`
	ResetTokenExpiresAt   *time.Time
	LastLoginAt           *time.Time
}

func (User) TableName() string {
	return "users"
}

// SessionStatus represents the lifecycle state of a study session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// IsValid checks if the session status is a known value
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCancelled, SessionStatusCompleted:
		return true
	}
	return false
}

// StudySession is a scheduled study meetup with a creator, a time window and a capacity
type StudySession struct {
	BaseModel
	Title           string        `gorm:"type:varchar(255);not null"`
	Description     string        `gorm:"type:text"`
	Subject         string        `gorm:"type:varchar(100);not null;index"`
	StartsAt        time.Time     `gorm:"not null;index"`
	DurationMinutes int           `gorm:"not null"`
	MaxParticipants int           `gorm:"not null"`
	Location        string        `gorm:"type:varchar(255)"`
	IsOnline        bool          `gorm:"not null"`
	MeetingLink     string        `gorm:"type:varchar(500)"`
	Tags            StringList    `gorm:"type:text"`
	Status          SessionStatus `gorm:"type:varchar(20);not null;index"`
	CreatorID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Creator         *User         `gorm:"foreignKey:CreatorID"`
	ReminderSentAt  *time.Time
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// EndsAt returns the time the session finishes
func (s *StudySession) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsActive reports whether the session still accepts changes and participants
func (s *StudySession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// ParticipantStatus tracks whether a user is currently part of a session
type ParticipantStatus string

const (
	ParticipantStatusJoined ParticipantStatus = "joined"
	ParticipantStatusLeft   ParticipantStatus = "left"
)

// SessionParticipant links a user to a session they joined.
// One row per (session, user); leaving flips the status instead of deleting.
type SessionParticipant struct {
	BaseModel
	SessionID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_session_participants_session_user"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_session_participants_session_user;index"`
	Status    ParticipantStatus `gorm:"type:varchar(20);not null"`
	JoinedAt  time.Time         `gorm:"not null"`
	LeftAt    *time.Time
	User      *User         `gorm:"foreignKey:UserID"`
	Session   *StudySession `gorm:"foreignKey:SessionID"`
}

func (SessionParticipant) TableName() string {
	return "session_participants"
}

// MessageType classifies in-session messages
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeLink   MessageType = "link"
	MessageTypeSystem MessageType = "system"
)

// SessionMessage is a chat message posted inside a session
type SessionMessage struct {
	BaseModel
	SessionID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Message     string      `gorm:"type:text;not null"`
	MessageType MessageType `gorm:"type:varchar(20);not null"`
	User        *User       `gorm:"foreignKey:UserID"`
}

func (SessionMessage) TableName() string {
	return "session_messages"
}

// StringList is a []string persisted as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = out
	return nil
}
