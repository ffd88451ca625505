package logger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("development console logger", func(t *testing.T) {
		log, err := logger.NewLogger(
			&config.LoggingConfig{Level: "debug", Format: "console"},
			&config.AppConfig{Name: "test", Environment: "development"},
		)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		log, err := logger.NewLogger(
			&config.LoggingConfig{Level: "verbose"},
			&config.AppConfig{Name: "test", Environment: "production"},
		)
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestScopedLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	sessionID, userID := uuid.New(), uuid.New()

	logger.ForSession(base, sessionID, userID).Info("joined")
	logger.ForJob(base, "session_reminder").Info("done")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, sessionID.String(), fields["sessionId"])
		assert.Equal(t, userID.String(), fields["userId"])

		assert.Equal(t, "jobs", entries[1].LoggerName)
		assert.Equal(t, "session_reminder", entries[1].ContextMap()["job_name"])
	}
}
