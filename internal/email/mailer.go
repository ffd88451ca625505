package email

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	"go.uber.org/zap"
)

const subjectSuffix = " - Session Buddy Hub"

// LinkData is the template data for emails carrying a single action link
type LinkData struct {
	Name      string
	URL       string
	ExpiresIn string
}

// SessionData is the template data for session notifications
type SessionData struct {
	Name            string
	Title           string
	Subject         string
	Date            string
	StartTime       string
	DurationMinutes int
	Location        string
	MeetingLink     string
	URL             string
}

// Mailer composes the application's emails and hands them to a Sender
type Mailer struct {
	renderer *Renderer
	sender   Sender
	logger   *zap.Logger
}

func NewMailer(renderer *Renderer, sender Sender, logger *zap.Logger) *Mailer {
	return &Mailer{
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}
}

// SendVerification emails the link that confirms ownership of the address
func (m *Mailer) SendVerification(ctx context.Context, user *domain.User, token string) error {
	return m.send(ctx, &Message{
		To:           mail.Address{Name: user.Name, Address: user.Email},
		Subject:      "Verify your email" + subjectSuffix,
		TemplateName: TemplateVerification,
		TemplateData: LinkData{
			Name:      user.Name,
			URL:       m.renderer.FrontendURL("/verify-email/" + token),
			ExpiresIn: "24 hours",
		},
	})
}

// SendPasswordReset emails the password reset link
func (m *Mailer) SendPasswordReset(ctx context.Context, user *domain.User, token string) error {
	return m.send(ctx, &Message{
		To:           mail.Address{Name: user.Name, Address: user.Email},
		Subject:      "Reset your password" + subjectSuffix,
		TemplateName: TemplatePasswordReset,
		TemplateData: LinkData{
			Name:      user.Name,
			URL:       m.renderer.FrontendURL("/reset-password?token=" + token),
			ExpiresIn: "1 hour",
		},
	})
}

// SendSessionReminder reminds one attendee about an upcoming session
func (m *Mailer) SendSessionReminder(ctx context.Context, to *domain.User, session *domain.StudySession) error {
	return m.send(ctx, &Message{
		To:           mail.Address{Name: to.Name, Address: to.Email},
		Subject:      "Reminder: " + session.Title + subjectSuffix,
		TemplateName: TemplateSessionReminder,
		TemplateData: m.sessionData(to, session),
	})
}

// SendSessionCancelled tells a participant that a session they joined was cancelled
func (m *Mailer) SendSessionCancelled(ctx context.Context, to *domain.User, session *domain.StudySession) error {
	return m.send(ctx, &Message{
		To:           mail.Address{Name: to.Name, Address: to.Email},
		Subject:      "Cancelled: " + session.Title + subjectSuffix,
		TemplateName: TemplateSessionCancelled,
		TemplateData: m.sessionData(to, session),
	})
}

func (m *Mailer) sessionData(to *domain.User, session *domain.StudySession) SessionData {
	startsAt := session.StartsAt.UTC()
	data := SessionData{
		Name:            to.Name,
		Title:           session.Title,
		Subject:         session.Subject,
		Date:            startsAt.Format("Monday, January 2, 2006"),
		StartTime:       startsAt.Format("15:04"),
		DurationMinutes: session.DurationMinutes,
		Location:        session.Location,
		URL:             m.renderer.FrontendURL("/sessions/" + session.ID.String()),
	}
	if session.IsOnline {
		data.MeetingLink = session.MeetingLink
	}
	return data
}

func (m *Mailer) send(ctx context.Context, msg *Message) error {
	if err := m.renderer.Render(msg); err != nil {
		metrics.RecordEmail(msg.TemplateName, false)
		return err
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		metrics.RecordEmail(msg.TemplateName, false)
		m.logger.Error("failed to send email",
			zap.String("template", msg.TemplateName),
			zap.String("to", msg.To.Address),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send %s email: %w", msg.TemplateName, err)
	}

	metrics.RecordEmail(msg.TemplateName, true)
	return nil
}
