package handler_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageHandler(t *testing.T) {
	env := newHandlerEnv(t)
	creator := testutil.CreateTestUser(t, env.db, "Alex Chen")
	member := testutil.CreateTestUser(t, env.db, "Maria Garcia")
	outsider := testutil.CreateTestUser(t, env.db, "John Smith")
	session := testutil.CreateTestSession(t, env.db, creator, "Linear Algebra", testutil.FutureTime(24*time.Hour))
	testutil.AddTestParticipant(t, env.db, session, member)

	t.Run("participants send messages", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{
			"message": "  Bring your notes on eigenvalues  ",
		}, member, idParam(session.ID))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var msg domain.MessageDTO
		decodeBody(t, w, &msg)
		assert.Equal(t, "Bring your notes on eigenvalues", msg.Message)
		assert.Equal(t, domain.MessageTypeText, msg.MessageType)
		assert.Equal(t, "Maria Garcia", msg.UserName)
	})

	t.Run("creator sends a link", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{
			"message":     "https://example.com/notes.pdf",
			"messageType": "link",
		}, creator, idParam(session.ID))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("whitespace only is rejected", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{"message": "   "}, member, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("length is measured after trimming", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{
			"message": "  " + strings.Repeat("a", 1000) + "  ",
		}, member, idParam(session.ID))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var msg domain.MessageDTO
		decodeBody(t, w, &msg)
		assert.Len(t, msg.Message, 1000)

		w = call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{
			"message": strings.Repeat("a", 1001),
		}, member, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("system type cannot be sent by users", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{
			"message":     "fake join",
			"messageType": "system",
		}, member, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("outsiders are forbidden", func(t *testing.T) {
		w := call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{"message": "hi"}, outsider, idParam(session.ID))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = call(env.messages.ListMessages, http.MethodGet, "/", nil, outsider, idParam(session.ID))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("list returns the conversation oldest first", func(t *testing.T) {
		w := call(env.messages.ListMessages, http.MethodGet, "/?pageSize=10", nil, creator, idParam(session.ID))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data     []domain.MessageDTO `json:"data"`
			Total    int64               `json:"total"`
			PageSize int                 `json:"pageSize"`
		}
		decodeBody(t, w, &resp)
		assert.EqualValues(t, 2, resp.Total)
		assert.Equal(t, 10, resp.PageSize)
		require.Len(t, resp.Data, 2)
		assert.False(t, resp.Data[1].CreatedAt.Before(resp.Data[0].CreatedAt))
	})

	t.Run("unknown session", func(t *testing.T) {
		id := uuid.New()
		w := call(env.messages.ListMessages, http.MethodGet, "/", nil, member, idParam(id))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("websocket requires membership", func(t *testing.T) {
		w := call(env.messages.Stream, http.MethodGet, "/", nil, outsider, idParam(session.ID))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, env.sockets.served)

		w = call(env.messages.Stream, http.MethodGet, "/", nil, member, idParam(session.ID))
		assert.Equal(t, http.StatusSwitchingProtocols, w.Code)
		assert.Equal(t, []uuid.UUID{session.ID}, env.sockets.served)
	})

	t.Run("cancelled sessions are read only", func(t *testing.T) {
		w := call(env.sessions.CancelSession, http.MethodDelete, "/", nil, creator, idParam(session.ID))
		require.Equal(t, http.StatusOK, w.Code)

		w = call(env.messages.SendMessage, http.MethodPost, "/", map[string]string{"message": "still there?"}, member, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = call(env.messages.ListMessages, http.MethodGet, "/", nil, member, idParam(session.ID))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
