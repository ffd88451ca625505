package service_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/realtime"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"github.com/studybuddy/studybuddy-api/internal/storage"
	"github.com/studybuddy/studybuddy-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// recordingPublisher captures realtime events instead of pushing them to sockets
type recordingPublisher struct {
	mu      sync.Mutex
	events  map[uuid.UUID][]realtime.Event
	revoked map[uuid.UUID][]uuid.UUID
}

func (p *recordingPublisher) Disconnect(sessionID, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revoked == nil {
		p.revoked = make(map[uuid.UUID][]uuid.UUID)
	}
	p.revoked[sessionID] = append(p.revoked[sessionID], userID)
}

func (p *recordingPublisher) Revoked(sessionID uuid.UUID) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.revoked[sessionID]...)
}

func (p *recordingPublisher) Publish(sessionID uuid.UUID, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[uuid.UUID][]realtime.Event)
	}
	p.events[sessionID] = append(p.events[sessionID], event)
}

func (p *recordingPublisher) For(sessionID uuid.UUID) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events[sessionID]...)
}

type testEnv struct {
	db        *gorm.DB
	outbox    *email.LogSender
	publisher *recordingPublisher
	tokens    *auth.TokenManager

	users        *repository.UserRepository
	sessionsRepo *repository.SessionRepository

	auth     *service.AuthService
	user     *service.UserService
	session  *service.SessionService
	messages *service.MessageService
	admin    *service.AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	renderer, err := email.NewRenderer("Session Buddy Hub", "http://localhost:5173")
	require.NoError(t, err)
	outbox := email.NewLogSender(logger)
	mailer := email.NewMailer(renderer, outbox, logger)

	store, err := storage.NewLocalStorage(t.TempDir(), logger)
	require.NoError(t, err)

	tokens := auth.NewTokenManager(&config.JWTConfig{Secret: "service-test-secret", Issuer: "studybuddy-test", ExpiryHours: 168})
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	publisher := &recordingPublisher{}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	messages := service.NewMessageService(sessionRepo, participantRepo, messageRepo, publisher, logger)

	return &testEnv{
		db:           db,
		outbox:       outbox,
		publisher:    publisher,
		tokens:       tokens,
		users:        userRepo,
		sessionsRepo: sessionRepo,
		auth:         service.NewAuthService(userRepo, hasher, tokens, mailer, logger),
		user:         service.NewUserService(userRepo, sessionRepo, participantRepo, messageRepo, store, logger),
		session:      service.NewSessionService(sessionRepo, participantRepo, userRepo, messages, mailer, logger),
		messages:     messages,
		admin:        service.NewAdminService(userRepo, hasher, nil, false, logger),
	}
}

// lastLinkToken returns the token at the end of the link in the newest email of the given template
func (e *testEnv) lastLinkToken(t *testing.T, template string) string {
	t.Helper()

	sent := e.outbox.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].TemplateName != template {
			continue
		}
		data, ok := sent[i].TemplateData.(email.LinkData)
		require.True(t, ok)
		idx := strings.LastIndexAny(data.URL, "/=")
		require.GreaterOrEqual(t, idx, 0)
		return data.URL[idx+1:]
	}
	t.Fatalf("no %s email sent", template)
	return ""
}
