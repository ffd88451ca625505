package mapper

import (
	"fmt"

	"github.com/studybuddy/studybuddy-api/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ToUserDTO converts User to the owner's view
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		University:    user.University,
		AvatarURL:     user.AvatarURL,
		Bio:           user.Bio,
		EmailVerified: user.EmailVerified,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
	}
}

// ToPublicUserDTO converts User to what other users may see
func ToPublicUserDTO(user *domain.User) domain.PublicUserDTO {
	return domain.PublicUserDTO{
		ID:         user.ID,
		Name:       user.Name,
		University: user.University,
		AvatarURL:  user.AvatarURL,
		Bio:        user.Bio,
		CreatedAt:  user.CreatedAt,
	}
}

func ToAdminUserDTO(user *domain.User) domain.AdminUserDTO {
	return domain.AdminUserDTO{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		University: user.University,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt,
	}
}

// ToSessionDTO converts StudySession to SessionDTO; Creator is used when preloaded
func ToSessionDTO(session *domain.StudySession, participantCount int64) domain.SessionDTO {
	startsAt := session.StartsAt.UTC()
	tags := []string(session.Tags)
	if tags == nil {
		tags = []string{}
	}

	dto := domain.SessionDTO{
		ID:               session.ID,
		Title:            session.Title,
		Description:      session.Description,
		Subject:          session.Subject,
		Date:             startsAt.Format(dateLayout),
		StartTime:        startsAt.Format(timeLayout),
		StartsAt:         startsAt,
		EndsAt:           session.EndsAt().UTC(),
		DurationMinutes:  session.DurationMinutes,
		MaxParticipants:  session.MaxParticipants,
		ParticipantCount: participantCount,
		Location:         session.Location,
		IsOnline:         session.IsOnline,
		MeetingLink:      session.MeetingLink,
		Tags:             tags,
		Status:           session.Status,
		CreatorID:        session.CreatorID,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
	}
	if session.Creator != nil {
		dto.CreatorName = session.Creator.Name
		dto.CreatorAvatarURL = session.Creator.AvatarURL
	}
	return dto
}

// ToParticipantDTO converts a participation with preloaded User
func ToParticipantDTO(participant *domain.SessionParticipant) domain.ParticipantDTO {
	dto := domain.ParticipantDTO{
		UserID:   participant.UserID,
		JoinedAt: participant.JoinedAt,
	}
	if participant.User != nil {
		dto.Name = participant.User.Name
		dto.University = participant.User.University
		dto.AvatarURL = participant.User.AvatarURL
	}
	return dto
}

func ToMessageDTO(message *domain.SessionMessage) domain.MessageDTO {
	dto := domain.MessageDTO{
		ID:          message.ID,
		SessionID:   message.SessionID,
		UserID:      message.UserID,
		Message:     message.Message,
		MessageType: message.MessageType,
		CreatedAt:   message.CreatedAt,
	}
	if message.User != nil {
		dto.UserName = message.User.Name
		dto.UserAvatarURL = message.User.AvatarURL
	}
	return dto
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
