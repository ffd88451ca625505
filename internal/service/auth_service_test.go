package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, env *testEnv, name, addr string) *domain.AuthResponse {
	t.Helper()
	resp, err := env.auth.Register(context.Background(), &domain.RegisterRequest{
		Name:       name,
		Email:      addr,
		Password:   "password123",
		University: "Stanford University",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)

	resp := register(t, env, "Alex Chen", "  Alex@University.edu ")

	assert.Equal(t, "alex@university.edu", resp.User.Email)
	assert.False(t, resp.User.EmailVerified)
	assert.NotEmpty(t, resp.Token)

	claims, err := env.tokens.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	stored, err := env.users.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	require.NotNil(t, stored.VerificationTokenHash)

	sent := env.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, email.TemplateVerification, sent[0].TemplateName)
	assert.Equal(t, "alex@university.edu", sent[0].To.Address)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "Alex Chen", "alex@university.edu")

	_, err := env.auth.Register(context.Background(), &domain.RegisterRequest{
		Name:     "Other Alex",
		Email:    "ALEX@university.edu",
		Password: "password123",
	})
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "Maria Garcia", "maria@university.edu")

	resp, err := env.auth.Login(ctx, &domain.LoginRequest{Email: "Maria@University.edu", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotNil(t, resp.User.LastLoginAt)
	assert.NotEmpty(t, resp.Token)

	_, err = env.auth.Login(ctx, &domain.LoginRequest{Email: "maria@university.edu", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, &domain.LoginRequest{Email: "nobody@university.edu", Password: "password123"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	require.NoError(t, env.users.UpdateFields(ctx, registered.User.ID, map[string]interface{}{"is_active": false}))
	_, err = env.auth.Login(ctx, &domain.LoginRequest{Email: "maria@university.edu", Password: "password123"})
	assert.ErrorIs(t, err, service.ErrAccountDeactivated)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "John Smith", "john@university.edu")

	require.NoError(t, env.auth.ForgotPassword(ctx, &domain.ForgotPasswordRequest{Email: "john@university.edu"}))
	token := env.lastLinkToken(t, email.TemplatePasswordReset)

	err := env.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Token: "not-the-token", Password: "newpassword"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)

	require.NoError(t, env.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Token: token, Password: "newpassword"}))

	_, err = env.auth.Login(ctx, &domain.LoginRequest{Email: "john@university.edu", Password: "newpassword"})
	assert.NoError(t, err)

	// tokens are single use
	err = env.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Token: token, Password: "another"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)
}

func TestAuthService_ResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "Sarah Wilson", "sarah@university.edu")

	require.NoError(t, env.auth.ForgotPassword(ctx, &domain.ForgotPasswordRequest{Email: "sarah@university.edu"}))
	token := env.lastLinkToken(t, email.TemplatePasswordReset)

	require.NoError(t, env.users.UpdateFields(ctx, registered.User.ID, map[string]interface{}{
		"reset_token_expires_at": time.Now().UTC().Add(-time.Minute),
	}))

	err := env.auth.ResetPassword(ctx, &domain.ResetPasswordRequest{Token: token, Password: "newpassword"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)
}

func TestAuthService_ForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.ForgotPassword(context.Background(), &domain.ForgotPasswordRequest{Email: "ghost@university.edu"})
	assert.NoError(t, err)
	assert.Empty(t, env.outbox.Sent())
}

func TestAuthService_VerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := register(t, env, "David Kim", "david@university.edu")
	token := env.lastLinkToken(t, email.TemplateVerification)

	assert.ErrorIs(t, env.auth.VerifyEmail(ctx, "bogus"), service.ErrInvalidVerifyToken)
	require.NoError(t, env.auth.VerifyEmail(ctx, token))

	me, err := env.auth.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailVerified)

	assert.ErrorIs(t, env.auth.VerifyEmail(ctx, token), service.ErrInvalidVerifyToken)
}
