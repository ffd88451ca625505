package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"github.com/studybuddy/studybuddy-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_ListBySession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, db, "Author")
	session := testutil.CreateTestSession(t, db, user, "Chat", testutil.FutureTime(time.Hour))
	other := testutil.CreateTestSession(t, db, user, "Other", testutil.FutureTime(time.Hour))

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, &domain.SessionMessage{
			SessionID:   session.ID,
			UserID:      user.ID,
			Message:     fmt.Sprintf("message %d", i),
			MessageType: domain.MessageTypeText,
		}))
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, repo.Create(ctx, &domain.SessionMessage{
		SessionID: other.ID, UserID: user.ID, Message: "elsewhere", MessageType: domain.MessageTypeText,
	}))

	t.Run("first page holds the newest messages in chronological order", func(t *testing.T) {
		messages, total, err := repo.ListBySession(ctx, session.ID, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, messages, 3)
		assert.Equal(t, "message 3", messages[0].Message)
		assert.Equal(t, "message 5", messages[2].Message)
		require.NotNil(t, messages[0].User)
		assert.Equal(t, "Author", messages[0].User.Name)
	})

	t.Run("second page holds older messages", func(t *testing.T) {
		messages, _, err := repo.ListBySession(ctx, session.ID, 2, 3)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "message 1", messages[0].Message)
		assert.Equal(t, "message 2", messages[1].Message)
	})
}

func TestMessageRepository_CountByUserIgnoresSystemMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewMessageRepository(db)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, db, "Author")
	session := testutil.CreateTestSession(t, db, user, "Chat", testutil.FutureTime(time.Hour))

	require.NoError(t, repo.Create(ctx, &domain.SessionMessage{SessionID: session.ID, UserID: user.ID, Message: "hi", MessageType: domain.MessageTypeText}))
	require.NoError(t, repo.Create(ctx, &domain.SessionMessage{SessionID: session.ID, UserID: user.ID, Message: "https://x.y", MessageType: domain.MessageTypeLink}))
	require.NoError(t, repo.Create(ctx, &domain.SessionMessage{SessionID: session.ID, UserID: user.ID, Message: "Author joined the session", MessageType: domain.MessageTypeSystem}))

	count, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := repo.GetByID(ctx, session.ID)
	assert.Error(t, err)
	assert.Nil(t, got)
}
