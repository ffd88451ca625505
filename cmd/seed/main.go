package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/database"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/logger"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DemoPassword is shared by every seeded account
const DemoPassword = "password123"

type demoUser struct {
	name, email, university, bio string
}

type demoSession struct {
	title, description, subject string
	daysAhead, hour, minute     int
	duration, capacity          int
	location, meetingLink       string
	creator                     int
	tags                        []string
	joiners                     []int
}

type demoMessage struct {
	session, author int
	text            string
}

var demoUsers = []demoUser{
	{"Alex Chen", "alex@university.edu", "Stanford University", "Computer Science major, passionate about AI and machine learning"},
	{"Maria Garcia", "maria@university.edu", "MIT", "Mathematics enthusiast, love solving complex problems"},
	{"John Smith", "john@university.edu", "Harvard University", "Physics student, interested in quantum mechanics"},
	{"Sarah Wilson", "sarah@university.edu", "UC Berkeley", "Chemistry major, research assistant in organic chemistry lab"},
	{"David Kim", "david@university.edu", "Yale University", "Computer Science and Mathematics double major"},
}

var demoSessions = []demoSession{
	{
		title: "Advanced Calculus Study Group", subject: "Mathematics",
		description: "Preparing for the midterm exam on integration techniques and differential equations",
		daysAhead:   1, hour: 14, duration: 120, capacity: 6, location: "Library Study Room 3",
		creator: 1, tags: []string{"calculus", "integration", "differential-equations"}, joiners: []int{0, 2, 3},
	},
	{
		title: "React Development Workshop", subject: "Computer Science",
		description: "Building a full-stack application with React. Hooks, state management and API integration",
		daysAhead:   2, hour: 16, minute: 30, duration: 180, capacity: 8, location: "Computer Lab A",
		creator: 0, tags: []string{"react", "javascript", "web-development"}, joiners: []int{1, 4},
	},
	{
		title: "Organic Chemistry Lab Prep", subject: "Chemistry",
		description: "Reviewing lab procedures and safety protocols for upcoming organic chemistry experiments",
		daysAhead:   3, hour: 10, duration: 150, capacity: 5, location: "Chemistry Building Lab 2",
		creator: 3, tags: []string{"chemistry", "lab-safety", "organic-chemistry"}, joiners: []int{0},
	},
	{
		title: "European History Discussion", subject: "History",
		description: "Analyzing the causes and effects of WWI, focusing on political and social changes",
		daysAhead:   4, hour: 13, duration: 90, capacity: 4, location: "History Department Conference Room",
		creator: 2, tags: []string{"history", "wwi", "european-history"}, joiners: []int{1},
	},
	{
		title: "Machine Learning Fundamentals", subject: "Computer Science",
		description: "Introduction to ML algorithms, focusing on supervised learning and neural networks",
		daysAhead:   5, hour: 15, duration: 120, capacity: 10, meetingLink: "https://meet.google.com/abc-defg-hij",
		creator: 4, tags: []string{"machine-learning", "ai", "neural-networks"}, joiners: []int{0, 1, 2},
	},
}

var demoMessages = []demoMessage{
	{0, 1, "Welcome everyone! Let's start with integration by parts."},
	{0, 0, "Great! I have some practice problems ready."},
	{1, 0, "Today we'll build a todo app with React hooks!"},
	{1, 4, "Perfect! I've been wanting to learn more about hooks."},
	{4, 4, "We'll cover linear regression and neural networks today."},
	{4, 0, "Excited to learn about ML algorithms!"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.App.IsProduction() {
		return errors.New("refusing to seed a production database")
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	return seed(context.Background(), db, auth.NewPasswordHasher(auth.DefaultBcryptCost), time.Now().UTC(), log)
}

// seed inserts the demo accounts and their sessions. Accounts that already
// exist are reused; sessions, participants and messages are only written on
// the run that first creates the session creators.
func seed(ctx context.Context, db *gorm.DB, hasher *auth.PasswordHasher, now time.Time, log *zap.Logger) error {
	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		sessions := repository.NewSessionRepository(tx)
		participants := repository.NewParticipantRepository(tx)
		messages := repository.NewMessageRepository(tx)

		accounts := make([]*domain.User, len(demoUsers))
		created := 0
		for i, u := range demoUsers {
			existing, err := users.GetByEmail(ctx, u.email)
			if err == nil {
				log.Info("Skipping existing user", zap.String("email", u.email))
				accounts[i] = existing
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up %s: %w", u.email, err)
			}

			user := &domain.User{
				Name:          u.name,
				Email:         u.email,
				PasswordHash:  hash,
				University:    u.university,
				Bio:           u.bio,
				IsActive:      true,
				EmailVerified: true,
			}
			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("failed to create user %s: %w", u.email, err)
			}
			accounts[i] = user
			created++
		}

		if created < len(demoUsers) {
			log.Info("Demo users already present, sessions not reseeded", zap.Int("users_created", created))
			return nil
		}

		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		planned := make([]*domain.StudySession, len(demoSessions))
		for i, s := range demoSessions {
			session := &domain.StudySession{
				Title:           s.title,
				Description:     s.description,
				Subject:         s.subject,
				StartsAt:        today.AddDate(0, 0, s.daysAhead).Add(time.Duration(s.hour)*time.Hour + time.Duration(s.minute)*time.Minute),
				DurationMinutes: s.duration,
				MaxParticipants: s.capacity,
				Location:        s.location,
				IsOnline:        s.meetingLink != "",
				MeetingLink:     s.meetingLink,
				Tags:            domain.StringList(s.tags),
				Status:          domain.SessionStatusActive,
				CreatorID:       accounts[s.creator].ID,
			}
			if err := sessions.Create(ctx, session); err != nil {
				return fmt.Errorf("failed to create session %q: %w", s.title, err)
			}
			planned[i] = session

			for _, j := range s.joiners {
				if err := participants.Create(ctx, &domain.SessionParticipant{
					SessionID: session.ID,
					UserID:    accounts[j].ID,
					Status:    domain.ParticipantStatusJoined,
					JoinedAt:  now,
				}); err != nil {
					return fmt.Errorf("failed to add participant: %w", err)
				}
			}
		}

		for i, m := range demoMessages {
			if err := messages.Create(ctx, &domain.SessionMessage{
				SessionID:   planned[m.session].ID,
				UserID:      accounts[m.author].ID,
				Message:     m.text,
				MessageType: domain.MessageTypeText,
				BaseModel:   domain.BaseModel{CreatedAt: now.Add(time.Duration(i) * time.Second)},
			}); err != nil {
				return fmt.Errorf("failed to add message: %w", err)
			}
		}

		log.Info("Demo data seeded",
			zap.Int("users", len(demoUsers)),
			zap.Int("sessions", len(demoSessions)),
			zap.Int("messages", len(demoMessages)),
			zap.String("password", DemoPassword),
		)
		return nil
	})
}
