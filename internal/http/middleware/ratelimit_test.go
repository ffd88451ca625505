package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func hit(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}, zap.NewNop())
	h := rl.LimitByIP(okHandler)

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sessions", "10.0.0.1").Code)
	}
}

func TestRateLimiter_LimitByIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/swagger/*"},
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler)

	t.Run("blocks after the limit", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sessions", "10.0.0.2").Code)
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sessions", "10.0.0.2").Code)

		w := hit(h, "/api/v1/sessions", "10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))

		var body domain.APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, domain.ErrorTypeTooManyRequests, body.Type)
	})

	t.Run("other clients keep their own budget", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sessions", "10.0.0.3").Code)
	})

	t.Run("whitelisted ip", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, hit(h, "/api/v1/sessions", "127.0.0.1").Code)
		}
	})

	t.Run("whitelisted paths", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, hit(h, "/health", "10.0.0.4").Code)
			assert.Equal(t, http.StatusOK, hit(h, "/swagger/index.html", "10.0.0.4").Code)
		}
	})
}

func TestRateLimiter_LimitAuth(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:                true,
		RequestsPerMinute:      100,
		RequestsPerMinuteLogin: 1,
	}, zap.NewNop())
	h := rl.LimitAuth(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/auth/login", "10.0.1.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/v1/auth/login", "10.0.1.1").Code)
}

func TestRateLimiter_LimitKeysByUser(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     100,
		RequestsPerMinuteAuth: 1,
	}, zap.NewNop())
	limited := rl.Limit(okHandler)

	as := func(userID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
		req.RemoteAddr = "10.0.2.1:1234"
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{UserID: userID}))
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		return w.Code
	}

	first, second := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusOK, as(first))
	assert.Equal(t, http.StatusTooManyRequests, as(first))
	// same IP, different account
	assert.Equal(t, http.StatusOK, as(second))
}
