package config_test

import (
	"testing"

	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "development")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "StudyBuddy API", cfg.App.Name)
	assert.Equal(t, 24*7, cfg.JWT.ExpiryHours)
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 60, cfg.Jobs.ReminderLeadMinutes)
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("FRONTEND_URL", "https://studybuddy.example.com")
	t.Setenv("APP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "super-secret", cfg.JWT.Secret)
	assert.Equal(t, "https://studybuddy.example.com", cfg.App.FrontendURL)
	assert.Equal(t, 9090, cfg.App.Port)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			App:   config.AppConfig{Environment: "development"},
			JWT:   config.JWTConfig{Secret: config.DefaultJWTSecret, ExpiryHours: 168},
			Email: config.EmailConfig{Provider: "log"},
		}
	}

	t.Run("default secret allowed in development", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("default secret rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("sendgrid requires api key", func(t *testing.T) {
		cfg := base()
		cfg.Email.Provider = "sendgrid"
		assert.Error(t, cfg.Validate())

		cfg.Email.SendgridApiKey = "SG.key"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("expiry must be positive", func(t *testing.T) {
		cfg := base()
		cfg.JWT.ExpiryHours = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestDurations(t *testing.T) {
	jwtCfg := config.JWTConfig{ExpiryHours: 2}
	assert.Equal(t, "2h0m0s", jwtCfg.ExpiryDuration().String())

	jobs := config.JobsConfig{ReminderLeadMinutes: 30, TimeoutSeconds: 10}
	assert.Equal(t, "30m0s", jobs.ReminderLeadDuration().String())
	assert.Equal(t, "10s", jobs.TimeoutDuration().String())
}
