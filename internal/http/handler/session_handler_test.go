package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":           title,
		"subject":         "Computer Science",
		"date":            testutil.FutureTime(48 * time.Hour).Format("2006-01-02"),
		"startTime":       "18:00",
		"durationMinutes": 120,
		"location":        "Engineering Building",
		"tags":            []string{"algorithms"},
	}
}

func TestSessionHandler_Create(t *testing.T) {
	env := newHandlerEnv(t)
	creator := testutil.CreateTestUser(t, env.db, "Alex Chen")

	t.Run("created with defaults", func(t *testing.T) {
		w := call(env.sessions.CreateSession, http.MethodPost, "/api/v1/sessions", sessionBody("Algorithms Review"), creator, nil)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var session domain.SessionDTO
		decodeBody(t, w, &session)
		assert.Equal(t, "Algorithms Review", session.Title)
		assert.Equal(t, 10, session.MaxParticipants)
		assert.Equal(t, domain.SessionStatusActive, session.Status)
		assert.Equal(t, creator.ID, session.CreatorID)
		assert.Equal(t, "/api/v1/sessions/"+session.ID.String(), w.Header().Get("Location"))
	})

	t.Run("online session requires a meeting link", func(t *testing.T) {
		body := sessionBody("Remote Review")
		body["isOnline"] = true

		w := call(env.sessions.CreateSession, http.MethodPost, "/api/v1/sessions", body, creator, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var apiErr domain.APIError
		decodeBody(t, w, &apiErr)
		assert.Equal(t, "Meeting link is required for online sessions", apiErr.Detail)
	})

	t.Run("duration out of range", func(t *testing.T) {
		body := sessionBody("Too Short")
		body["durationMinutes"] = 10

		w := call(env.sessions.CreateSession, http.MethodPost, "/api/v1/sessions", body, creator, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var apiErr domain.APIError
		decodeBody(t, w, &apiErr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "durationMinutes")
	})

	t.Run("bad time format", func(t *testing.T) {
		body := sessionBody("Bad Time")
		body["startTime"] = "6pm"

		w := call(env.sessions.CreateSession, http.MethodPost, "/api/v1/sessions", body, creator, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionHandler_ListAndGet(t *testing.T) {
	env := newHandlerEnv(t)
	creator := testutil.CreateTestUser(t, env.db, "Alex Chen")
	viewer := testutil.CreateTestUser(t, env.db, "Maria Garcia")
	session := testutil.CreateTestSession(t, env.db, creator, "Calculus Study Group", testutil.FutureTime(24*time.Hour))
	testutil.AddTestParticipant(t, env.db, session, viewer)

	t.Run("list", func(t *testing.T) {
		w := call(env.sessions.ListSessions, http.MethodGet, "/api/v1/sessions?subject=math", nil, viewer, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data  []domain.SessionDTO `json:"data"`
			Total int64               `json:"total"`
		}
		decodeBody(t, w, &resp)
		assert.EqualValues(t, 1, resp.Total)
		require.Len(t, resp.Data, 1)
		assert.True(t, resp.Data[0].IsParticipant)
		assert.EqualValues(t, 1, resp.Data[0].ParticipantCount)
	})

	t.Run("huge page is clamped", func(t *testing.T) {
		w := call(env.sessions.ListSessions, http.MethodGet, "/api/v1/sessions?page=9223372036854775807&pageSize=100", nil, viewer, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Data  []domain.SessionDTO `json:"data"`
			Total int64               `json:"total"`
			Page  int                 `json:"page"`
		}
		decodeBody(t, w, &resp)
		assert.Empty(t, resp.Data)
		assert.EqualValues(t, 1, resp.Total)
		assert.Equal(t, 21474836, resp.Page)
	})

	t.Run("requires a user", func(t *testing.T) {
		w := call(env.sessions.ListSessions, http.MethodGet, "/api/v1/sessions", nil, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = call(env.sessions.GetSession, http.MethodGet, "/api/v1/sessions/"+session.ID.String(), nil, nil, idParam(session.ID))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid filters", func(t *testing.T) {
		for _, target := range []string{
			"/api/v1/sessions?status=archived",
			"/api/v1/sessions?date=tomorrow",
			"/api/v1/sessions?creatorId=42",
		} {
			w := call(env.sessions.ListSessions, http.MethodGet, target, nil, viewer, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
	})

	t.Run("detail", func(t *testing.T) {
		w := call(env.sessions.GetSession, http.MethodGet, "/api/v1/sessions/"+session.ID.String(), nil, creator, idParam(session.ID))

		require.Equal(t, http.StatusOK, w.Code)
		var detail domain.SessionDetailDTO
		decodeBody(t, w, &detail)
		assert.True(t, detail.IsCreator)
		assert.False(t, detail.IsParticipant)
		require.Len(t, detail.Participants, 1)
		assert.Equal(t, viewer.ID, detail.Participants[0].UserID)
	})

	t.Run("unknown session", func(t *testing.T) {
		id := uuid.New()
		w := call(env.sessions.GetSession, http.MethodGet, "/api/v1/sessions/"+id.String(), nil, viewer, idParam(id))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := call(env.sessions.GetSession, http.MethodGet, "/api/v1/sessions/abc", nil, viewer, map[string]string{"id": "abc"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var apiErr domain.APIError
		decodeBody(t, w, &apiErr)
		assert.Equal(t, "Invalid session ID: must be a valid UUID", apiErr.Detail)
	})
}

func TestSessionHandler_UpdateAndCancel(t *testing.T) {
	env := newHandlerEnv(t)
	creator := testutil.CreateTestUser(t, env.db, "Alex Chen")
	other := testutil.CreateTestUser(t, env.db, "John Smith")
	session := testutil.CreateTestSession(t, env.db, creator, "Physics Lab Prep", testutil.FutureTime(24*time.Hour))

	t.Run("only the creator may update", func(t *testing.T) {
		w := call(env.sessions.UpdateSession, http.MethodPut, "/", sessionBody("Hijacked"), other, idParam(session.ID))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("creator updates", func(t *testing.T) {
		body := sessionBody("Physics Lab Prep II")
		body["maxParticipants"] = 8

		w := call(env.sessions.UpdateSession, http.MethodPut, "/", body, creator, idParam(session.ID))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated domain.SessionDTO
		decodeBody(t, w, &updated)
		assert.Equal(t, "Physics Lab Prep II", updated.Title)
		assert.Equal(t, 8, updated.MaxParticipants)
	})

	t.Run("only the creator may cancel", func(t *testing.T) {
		w := call(env.sessions.CancelSession, http.MethodDelete, "/", nil, other, idParam(session.ID))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cancel then cancel again", func(t *testing.T) {
		w := call(env.sessions.CancelSession, http.MethodDelete, "/", nil, creator, idParam(session.ID))
		require.Equal(t, http.StatusOK, w.Code)

		w = call(env.sessions.CancelSession, http.MethodDelete, "/", nil, creator, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cancelled sessions cannot be edited", func(t *testing.T) {
		w := call(env.sessions.UpdateSession, http.MethodPut, "/", sessionBody("Too Late"), creator, idParam(session.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionHandler_Membership(t *testing.T) {
	env := newHandlerEnv(t)
	creator := testutil.CreateTestUser(t, env.db, "Alex Chen")
	student := testutil.CreateTestUser(t, env.db, "Sarah Wilson")
	latecomer := testutil.CreateTestUser(t, env.db, "David Kim")
	session := testutil.CreateTestSession(t, env.db, creator, "Organic Chemistry", testutil.FutureTime(24*time.Hour))
	require.NoError(t, env.db.Model(session).Update("max_participants", 1).Error)

	join := func(user *domain.User) int {
		return call(env.sessions.JoinSession, http.MethodPost, "/", nil, user, idParam(session.ID)).Code
	}
	leave := func(user *domain.User) int {
		return call(env.sessions.LeaveSession, http.MethodPost, "/", nil, user, idParam(session.ID)).Code
	}

	assert.Equal(t, http.StatusBadRequest, join(creator), "creator cannot join")
	assert.Equal(t, http.StatusBadRequest, leave(creator), "creator cannot leave")
	assert.Equal(t, http.StatusBadRequest, leave(student), "not yet a participant")

	assert.Equal(t, http.StatusOK, join(student))
	assert.Equal(t, http.StatusConflict, join(student), "already joined")
	assert.Equal(t, http.StatusConflict, join(latecomer), "session full")

	assert.Equal(t, http.StatusOK, leave(student))
	assert.Equal(t, http.StatusOK, join(latecomer), "seat freed")

	unknown := uuid.New()
	w := call(env.sessions.JoinSession, http.MethodPost, "/", nil, student, idParam(unknown))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
