package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/http/handler"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"github.com/studybuddy/studybuddy-api/internal/storage"
	"github.com/studybuddy/studybuddy-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// stubSockets records websocket subscriptions instead of upgrading
type stubSockets struct {
	served []uuid.UUID
}

func (s *stubSockets) Serve(w http.ResponseWriter, r *http.Request, sessionID, userID uuid.UUID) error {
	s.served = append(s.served, sessionID)
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

type handlerEnv struct {
	db      *gorm.DB
	outbox  *email.LogSender
	sockets *stubSockets

	auth     *handler.AuthHandler
	users    *handler.UserHandler
	sessions *handler.SessionHandler
	messages *handler.MessageHandler
	admin    *handler.AdminHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	renderer, err := email.NewRenderer("Session Buddy Hub", "http://localhost:5173")
	require.NoError(t, err)
	outbox := email.NewLogSender(logger)
	mailer := email.NewMailer(renderer, outbox, logger)

	store, err := storage.NewLocalStorage(t.TempDir(), logger)
	require.NoError(t, err)

	tokens := auth.NewTokenManager(&config.JWTConfig{Secret: "handler-test-secret", Issuer: "studybuddy-test", ExpiryHours: 168})
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	messages := service.NewMessageService(sessionRepo, participantRepo, messageRepo, nil, logger)
	sockets := &stubSockets{}

	return &handlerEnv{
		db:       db,
		outbox:   outbox,
		sockets:  sockets,
		auth:     handler.NewAuthHandler(service.NewAuthService(userRepo, hasher, tokens, mailer, logger), logger),
		users:    handler.NewUserHandler(service.NewUserService(userRepo, sessionRepo, participantRepo, messageRepo, store, logger), 1, logger),
		sessions: handler.NewSessionHandler(service.NewSessionService(sessionRepo, participantRepo, userRepo, messages, mailer, logger), logger),
		messages: handler.NewMessageHandler(messages, sockets, logger),
		admin: handler.NewAdminHandler(service.NewAdminService(userRepo, hasher, func(context.Context) error {
			return nil
		}, false, logger), logger),
	}
}

// call invokes h with an optional JSON body, caller and chi URL params
func call(h http.HandlerFunc, method, target string, body interface{}, user *domain.User, params map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(h, req, user, params)
}

func serve(h http.HandlerFunc, req *http.Request, user *domain.User, params map[string]string) *httptest.ResponseRecorder {
	ctx := req.Context()
	if user != nil {
		ctx = auth.WithUserContext(ctx, &auth.UserContext{UserID: user.ID, Name: user.Name, Email: user.Email})
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	w := httptest.NewRecorder()
	h(w, req.WithContext(ctx))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func idParam(id uuid.UUID) map[string]string {
	return map[string]string{"id": id.String()}
}
