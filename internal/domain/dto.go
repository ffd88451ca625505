package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ============================================================================
// Users
// ============================================================================

// UserDTO is the private view of an account, returned to its owner
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	University    string     `json:"university,omitempty"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// PublicUserDTO is what other users may see
type PublicUserDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	University string    `json:"university,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PublicProfileDTO is a public profile with the user's newest active sessions
type PublicProfileDTO struct {
	User     PublicUserDTO `json:"user"`
	Sessions []SessionDTO  `json:"sessions"`
}

// UserStatsDTO summarises a user's activity
type UserStatsDTO struct {
	SessionsCreated   int64 `json:"sessionsCreated"`
	SessionsJoined    int64 `json:"sessionsJoined"`
	MessagesSent      int64 `json:"messagesSent"`
	UpcomingSessions  int64 `json:"upcomingSessions"`
	TotalStudyMinutes int64 `json:"totalStudyMinutes"`
}

// AdminUserDTO is the row shape of the admin user listing
type AdminUserDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	University string    `json:"university,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
	Token   string  `json:"token"`
}

// ============================================================================
// Sessions
// ============================================================================

// SessionDTO is the list/detail representation of a study session
type SessionDTO struct {
	ID               uuid.UUID     `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	Subject          string        `json:"subject"`
	Date             string        `json:"date"`
	StartTime        string        `json:"startTime"`
	StartsAt         time.Time     `json:"startsAt"`
	EndsAt           time.Time     `json:"endsAt"`
	DurationMinutes  int           `json:"durationMinutes"`
	MaxParticipants  int           `json:"maxParticipants"`
	ParticipantCount int64         `json:"participantCount"`
	Location         string        `json:"location,omitempty"`
	IsOnline         bool          `json:"isOnline"`
	MeetingLink      string        `json:"meetingLink,omitempty"`
	Tags             []string      `json:"tags"`
	Status           SessionStatus `json:"status"`
	CreatorID        uuid.UUID     `json:"creatorId"`
	CreatorName      string        `json:"creatorName,omitempty"`
	CreatorAvatarURL string        `json:"creatorAvatarUrl,omitempty"`
	IsParticipant    bool          `json:"isParticipant"`
	UserRelation     string        `json:"userRelation,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// ParticipantDTO is a joined participant of a session
type ParticipantDTO struct {
	UserID     uuid.UUID `json:"userId"`
	Name       string    `json:"name"`
	University string    `json:"university,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// SessionDetailDTO is returned by the single session endpoint
type SessionDetailDTO struct {
	Session       SessionDTO       `json:"session"`
	Participants  []ParticipantDTO `json:"participants"`
	IsParticipant bool             `json:"isParticipant"`
	IsCreator     bool             `json:"isCreator"`
}

// MessageDTO is an in-session chat message
type MessageDTO struct {
	ID            uuid.UUID   `json:"id"`
	SessionID     uuid.UUID   `json:"sessionId"`
	UserID        uuid.UUID   `json:"userId"`
	UserName      string      `json:"userName,omitempty"`
	UserAvatarURL string      `json:"userAvatarUrl,omitempty"`
	Message       string      `json:"message"`
	MessageType   MessageType `json:"messageType"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// SessionListFilter holds the optional filters of the session listing
type SessionListFilter struct {
	Subject   string
	Date      *time.Time
	CreatorID *uuid.UUID
	Status    SessionStatus
}

// UserSessionsType selects which sessions of the caller are listed
type UserSessionsType string

const (
	UserSessionsCreated UserSessionsType = "created"
	UserSessionsJoined  UserSessionsType = "joined"
	UserSessionsAll     UserSessionsType = "all"
)

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	University string `json:"university,omitempty" validate:"omitempty,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UpdateProfileRequest changes only the fields that are present
type UpdateProfileRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	University *string `json:"university,omitempty" validate:"omitempty,max=255"`
	Bio        *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
}

// IsEmpty reports whether no field was supplied
func (r *UpdateProfileRequest) IsEmpty() bool {
	return r.Name == nil && r.University == nil && r.Bio == nil
}

// SessionRequest is the body of session create and update
type SessionRequest struct {
	Title           string   `json:"title" validate:"required,min=3,max=255"`
	Description     string   `json:"description,omitempty" validate:"max=1000"`
	Subject         string   `json:"subject" validate:"required,min=1,max=100"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string   `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int      `json:"durationMinutes" validate:"required,gte=30,lte=480"`
	MaxParticipants int      `json:"maxParticipants,omitempty" validate:"omitempty,gte=1,lte=50"`
	Location        string   `json:"location,omitempty" validate:"max=255"`
	IsOnline        bool     `json:"isOnline"`
	MeetingLink     string   `json:"meetingLink,omitempty" validate:"omitempty,url,max=500"`
	Tags            []string `json:"tags,omitempty" validate:"max=10,dive,min=1,max=50"`
}

type SendMessageRequest struct {
	Message     string      `json:"message" validate:"required,min=1,max=1000"`
	MessageType MessageType `json:"messageType,omitempty" validate:"omitempty,oneof=text link"`
}
