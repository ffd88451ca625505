package handler_test

import (
	"net/http"
	"testing"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerViaHandler(t *testing.T, env *handlerEnv, name, addr string) domain.AuthResponse {
	t.Helper()

	w := call(env.auth.Register, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":       name,
		"email":      addr,
		"password":   "password123",
		"university": "MIT",
	}, nil, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp domain.AuthResponse
	decodeBody(t, w, &resp)
	return resp
}

func TestAuthHandler_Register(t *testing.T) {
	env := newHandlerEnv(t)

	t.Run("creates account and returns token", func(t *testing.T) {
		resp := registerViaHandler(t, env, "Maria Garcia", "maria@mit.edu")

		assert.Equal(t, "User registered successfully", resp.Message)
		assert.Equal(t, "maria@mit.edu", resp.User.Email)
		assert.NotEmpty(t, resp.Token)

		sent := env.outbox.Sent()
		require.NotEmpty(t, sent)
		assert.Equal(t, email.TemplateVerification, sent[len(sent)-1].TemplateName)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := call(env.auth.Register, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"name":     "Maria Again",
			"email":    "MARIA@mit.edu",
			"password": "password123",
		}, nil, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body domain.APIError
		decodeBody(t, w, &body)
		assert.Equal(t, domain.ErrorTypeConflict, body.Type)
	})

	t.Run("validation errors name the fields", func(t *testing.T) {
		w := call(env.auth.Register, http.MethodPost, "/api/v1/auth/register", map[string]string{
			"name":     "M",
			"email":    "not-an-email",
			"password": "123",
		}, nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body domain.APIError
		decodeBody(t, w, &body)
		assert.Equal(t, domain.ErrorTypeValidation, body.Type)
		assert.Contains(t, body.Errors, "name")
		assert.Contains(t, body.Errors, "email")
		assert.Contains(t, body.Errors, "password")
	})

	t.Run("missing body", func(t *testing.T) {
		w := call(env.auth.Register, http.MethodPost, "/api/v1/auth/register", nil, nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body domain.APIError
		decodeBody(t, w, &body)
		assert.Equal(t, "Request body is required", body.Detail)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := call(env.auth.Register, http.MethodPost, "/api/v1/auth/register", "{not json", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	env := newHandlerEnv(t)
	registerViaHandler(t, env, "John Smith", "john@berkeley.edu")

	t.Run("success", func(t *testing.T) {
		w := call(env.auth.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "john@berkeley.edu",
			"password": "password123",
		}, nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp domain.AuthResponse
		decodeBody(t, w, &resp)
		assert.Equal(t, "Login successful", resp.Message)
		assert.NotEmpty(t, resp.Token)
		assert.NotNil(t, resp.User.LastLoginAt)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		for _, creds := range []map[string]string{
			{"email": "john@berkeley.edu", "password": "wrong-password"},
			{"email": "nobody@berkeley.edu", "password": "password123"},
		} {
			w := call(env.auth.Login, http.MethodPost, "/api/v1/auth/login", creds, nil, nil)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body domain.APIError
			decodeBody(t, w, &body)
			assert.Equal(t, "Invalid email or password", body.Detail)
		}
	})

	t.Run("deactivated account", func(t *testing.T) {
		require.NoError(t, env.db.Model(&domain.User{}).
			Where("email = ?", "john@berkeley.edu").
			Update("is_active", false).Error)

		w := call(env.auth.Login, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "john@berkeley.edu",
			"password": "password123",
		}, nil, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body domain.APIError
		decodeBody(t, w, &body)
		assert.Equal(t, "Account is deactivated", body.Detail)
	})
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	env := newHandlerEnv(t)
	registerViaHandler(t, env, "Sarah Wilson", "sarah@harvard.edu")

	t.Run("unknown email gets the generic answer", func(t *testing.T) {
		before := len(env.outbox.Sent())
		w := call(env.auth.ForgotPassword, http.MethodPost, "/api/v1/auth/forgot-password",
			map[string]string{"email": "ghost@harvard.edu"}, nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var body domain.MessageResponse
		decodeBody(t, w, &body)
		assert.Contains(t, body.Message, "If an account exists")
		assert.Len(t, env.outbox.Sent(), before)
	})

	t.Run("known email receives a reset link", func(t *testing.T) {
		w := call(env.auth.ForgotPassword, http.MethodPost, "/api/v1/auth/forgot-password",
			map[string]string{"email": "sarah@harvard.edu"}, nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		sent := env.outbox.Sent()
		assert.Equal(t, email.TemplatePasswordReset, sent[len(sent)-1].TemplateName)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := call(env.auth.ResetPassword, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{
			"token":    "deadbeef",
			"password": "newpassword",
		}, nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_VerifyEmail_InvalidToken(t *testing.T) {
	env := newHandlerEnv(t)

	w := call(env.auth.VerifyEmail, http.MethodGet, "/api/v1/auth/verify-email/nope", nil, nil,
		map[string]string{"token": "nope"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body domain.APIError
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid verification token", body.Detail)
}

func TestAuthHandler_Me(t *testing.T) {
	env := newHandlerEnv(t)
	resp := registerViaHandler(t, env, "David Kim", "david@ucla.edu")

	t.Run("requires a user", func(t *testing.T) {
		w := call(env.auth.Me, http.MethodGet, "/api/v1/auth/me", nil, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns the caller", func(t *testing.T) {
		user := &domain.User{BaseModel: domain.BaseModel{ID: resp.User.ID}, Name: resp.User.Name, Email: resp.User.Email}
		w := call(env.auth.Me, http.MethodGet, "/api/v1/auth/me", nil, user, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var me domain.UserDTO
		decodeBody(t, w, &me)
		assert.Equal(t, "david@ucla.edu", me.Email)
		assert.Equal(t, "MIT", me.University)
	})
}
