package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(&config.JWTConfig{
		Secret:      "test-secret",
		Issuer:      "studybuddy-test",
		ExpiryHours: 24 * 7,
	})
}

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	tm := newTokenManager()
	userID := uuid.New()

	token, expiresAt, err := tm.Generate(userID, "ada@example.com", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	userCtx, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, userCtx.UserID)
	assert.Equal(t, "ada@example.com", userCtx.Email)
	assert.Equal(t, "Ada", userCtx.Name)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := newTokenManager()
	tm.SetClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) })

	token, _, err := tm.Generate(uuid.New(), "ada@example.com", "Ada")
	require.NoError(t, err)

	tm.SetClock(time.Now)
	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	other := auth.NewTokenManager(&config.JWTConfig{Secret: "other", Issuer: "studybuddy-test", ExpiryHours: 1})
	token, _, err := other.Generate(uuid.New(), "a@example.com", "A")
	require.NoError(t, err)

	_, err = newTokenManager().ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_RejectsWrongIssuer(t *testing.T) {
	other := auth.NewTokenManager(&config.JWTConfig{Secret: "test-secret", Issuer: "someone-else", ExpiryHours: 1})
	token, _, err := other.Generate(uuid.New(), "a@example.com", "A")
	require.NoError(t, err)

	_, err = newTokenManager().ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "studybuddy-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTokenManager().ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	_, err := newTokenManager().ValidateToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
