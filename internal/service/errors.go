package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")
)

// Account errors
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("user already exists with this email")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountDeactivated    = errors.New("account is deactivated")
	ErrInvalidResetToken     = errors.New("invalid or expired reset token")
	ErrInvalidVerifyToken    = errors.New("invalid verification token")
	ErrNoFieldsToUpdate      = errors.New("no fields to update")
	ErrEmptySearchQuery      = errors.New("search query is required")
	ErrUnsupportedAvatarType = errors.New("avatar must be a JPEG, PNG, GIF or WebP image")
	ErrAvatarNotFound        = errors.New("avatar not found")
)

// Session errors
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionNotActive      = errors.New("session is not active")
	ErrSessionCancelled      = errors.New("session has been cancelled")
	ErrNotSessionCreator     = errors.New("only the session creator can do this")
	ErrMeetingLinkRequired   = errors.New("meeting link is required for online sessions")
	ErrCapacityBelowJoined   = errors.New("max participants cannot be lower than the current participant count")
	ErrInvalidSchedule       = errors.New("invalid session date or start time")
	ErrCreatorCannotJoin     = errors.New("creator cannot join their own session")
	ErrCreatorCannotLeave    = errors.New("creator cannot leave their own session")
	ErrSessionFull           = errors.New("session is full")
	ErrAlreadyJoined         = errors.New("already joined this session")
	ErrNotParticipant        = errors.New("not a participant of this session")
	ErrMessageAccessDenied   = errors.New("only the creator and participants can access messages")
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrProductionAdminAccess = errors.New("admin endpoints are disabled in production")
)
