package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
)

// Job names as registered with the scheduler and reported in metrics
const (
	ReminderJobName   = "session_reminder"
	CompletionJobName = "session_completion"
)

// ReminderJob emails the creator and joined participants of sessions starting soon.
// Each session is reminded at most once.
type ReminderJob struct {
	sessionRepo     *repository.SessionRepository
	participantRepo *repository.ParticipantRepository
	userRepo        *repository.UserRepository
	mailer          *email.Mailer
	lead            time.Duration
	now             func() time.Time
	logger          *zap.Logger
}

func NewReminderJob(
	sessionRepo *repository.SessionRepository,
	participantRepo *repository.ParticipantRepository,
	userRepo *repository.UserRepository,
	mailer *email.Mailer,
	lead time.Duration,
	logger *zap.Logger,
) *ReminderJob {
	return &ReminderJob{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		mailer:          mailer,
		lead:            lead,
		now:             time.Now,
		logger:          logger,
	}
}

// SetClock overrides the time source
func (j *ReminderJob) SetClock(now func() time.Time) {
	j.now = now
}

func (j *ReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	sessions, err := j.sessionRepo.ListDueForReminder(ctx, now, now.Add(j.lead))
	if err != nil {
		return fmt.Errorf("failed to list sessions due for reminder: %w", err)
	}

	sent := 0
	for i := range sessions {
		session := &sessions[i]
		recipients, err := j.recipients(ctx, session)
		if err != nil {
			return err
		}

		for _, user := range recipients {
			if err := j.mailer.SendSessionReminder(ctx, user, session); err != nil {
				j.logger.Warn("failed to send session reminder",
					zap.String("session_id", session.ID.String()),
					zap.String("user_id", user.ID.String()),
					zap.Error(err))
				continue
			}
			sent++
		}

		if err := j.sessionRepo.MarkReminderSent(ctx, session.ID, now); err != nil {
			return fmt.Errorf("failed to mark reminder sent: %w", err)
		}
	}

	if len(sessions) > 0 {
		j.logger.Info("session reminders sent",
			zap.Int("sessions", len(sessions)),
			zap.Int("emails", sent))
	}
	return nil
}

// recipients returns the active creator followed by the active joined participants
func (j *ReminderJob) recipients(ctx context.Context, session *domain.StudySession) ([]*domain.User, error) {
	var users []*domain.User
	seen := make(map[uuid.UUID]bool)

	creator, err := j.userRepo.GetActiveByID(ctx, session.CreatorID)
	if err == nil {
		users = append(users, creator)
		seen[creator.ID] = true
	}

	participants, err := j.participantRepo.ListJoined(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		if p.User == nil || !p.User.IsActive || seen[p.UserID] {
			continue
		}
		users = append(users, p.User)
		seen[p.UserID] = true
	}
	return users, nil
}

// CompletionJob marks active sessions whose end time has passed as completed
type CompletionJob struct {
	sessionRepo *repository.SessionRepository
	now         func() time.Time
	logger      *zap.Logger
}

func NewCompletionJob(sessionRepo *repository.SessionRepository, logger *zap.Logger) *CompletionJob {
	return &CompletionJob{
		sessionRepo: sessionRepo,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock overrides the time source
func (j *CompletionJob) SetClock(now func() time.Time) {
	j.now = now
}

func (j *CompletionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	started, err := j.sessionRepo.ListActiveStartedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list started sessions: %w", err)
	}

	var ended []uuid.UUID
	for i := range started {
		if !started[i].EndsAt().After(now) {
			ended = append(ended, started[i].ID)
		}
	}

	completed, err := j.sessionRepo.MarkCompleted(ctx, ended)
	if err != nil {
		return fmt.Errorf("failed to complete sessions: %w", err)
	}

	if completed > 0 {
		j.logger.Info("sessions completed", zap.Int64("count", completed))
	}
	return nil
}
