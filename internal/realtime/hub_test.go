package realtime_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/studybuddy/studybuddy-api/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startServer(t *testing.T, hub *realtime.Hub, sessionID uuid.UUID) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, sessionID, uuid.New())
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	return dialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
}

func waitForSubscribers(t *testing.T, hub *realtime.Hub, sessionID uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(sessionID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishReachesSubscribersOfTheSession(t *testing.T) {
	hub := realtime.NewHub([]string{"*"}, zap.NewNop())
	defer hub.Close()

	sessionID := uuid.New()
	server := startServer(t, hub, sessionID)

	conn, _, err := dial(t, server, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForSubscribers(t, hub, sessionID, 1)

	hub.Publish(uuid.New(), realtime.Event{Type: realtime.EventMessageCreated, Data: "other session"})
	hub.Publish(sessionID, realtime.Event{Type: realtime.EventMessageCreated, Data: map[string]string{"message": "hello"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, realtime.EventMessageCreated, event.Type)
	assert.Equal(t, "hello", event.Data["message"])
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := realtime.NewHub([]string{"*"}, zap.NewNop())
	sessionID := uuid.New()
	server := startServer(t, hub, sessionID)

	conn, _, err := dial(t, server, nil)
	require.NoError(t, err)
	waitForSubscribers(t, hub, sessionID, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, sessionID, 0)
}

func TestHub_DisconnectClosesOnlyThatUser(t *testing.T) {
	hub := realtime.NewHub([]string{"*"}, zap.NewNop())
	defer hub.Close()

	sessionID := uuid.New()
	leaver, stayer := uuid.New(), uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := uuid.Parse(r.URL.Query().Get("user"))
		_ = hub.Serve(w, r, sessionID, userID)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	leaving, _, err := websocket.DefaultDialer.Dial(url+"?user="+leaver.String(), nil)
	require.NoError(t, err)
	defer leaving.Close()
	staying, _, err := websocket.DefaultDialer.Dial(url+"?user="+stayer.String(), nil)
	require.NoError(t, err)
	defer staying.Close()
	waitForSubscribers(t, hub, sessionID, 2)

	hub.Disconnect(sessionID, leaver)
	assert.Equal(t, 1, hub.Subscribers(sessionID))

	hub.Publish(sessionID, realtime.Event{Type: realtime.EventMessageCreated, Data: "after leave"})

	_ = leaving.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = leaving.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	_ = staying.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := staying.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), "after leave")
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := realtime.NewHub([]string{"https://app.example.com"}, zap.NewNop())
	sessionID := uuid.New()
	server := startServer(t, hub, sessionID)

	_, resp, err := dial(t, server, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, server, http.Header{"Origin": []string{"https://app.example.com"}})
	require.NoError(t, err)
	conn.Close()
}
