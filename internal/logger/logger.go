// Package logger builds the zap loggers used across the API.
package logger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a JSON logger in production (or when format is "json")
// and a colored console logger otherwise. Unknown levels fall back to info.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	zapCfg := baseConfig(cfg.Format == "json" || appCfg.IsProduction())

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func baseConfig(structured bool) zap.Config {
	if structured {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	return cfg
}

// ForSession scopes log to one user's activity inside a study session
func ForSession(log *zap.Logger, sessionID, userID uuid.UUID) *zap.Logger {
	return log.With(
		zap.String("sessionId", sessionID.String()),
		zap.String("userId", userID.String()),
	)
}

// ForJob scopes log to a scheduled job
func ForJob(log *zap.Logger, name string) *zap.Logger {
	return log.Named("jobs").With(zap.String("job_name", name))
}
