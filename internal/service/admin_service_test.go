package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/database"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminService_EnsureTestUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.admin.EnsureTestUser(ctx)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, service.TestUserEmail, result.User.Email)
	assert.Equal(t, service.TestUserPassword, result.Password)

	again, err := env.admin.EnsureTestUser(ctx)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, result.User.ID, again.User.ID)

	resp, err := env.auth.Login(ctx, &domain.LoginRequest{Email: service.TestUserEmail, Password: service.TestUserPassword})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resp.User.ID)

	users, err := env.admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsActive)
}

func TestAdminService_InitDatabase(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	admin := service.NewAdminService(env.users, auth.NewPasswordHasher(bcrypt.MinCost), func(ctx context.Context) error {
		calls++
		return database.AutoMigrate(env.db.WithContext(ctx))
	}, false, zap.NewNop())

	require.NoError(t, admin.InitDatabase(context.Background()))
	assert.Equal(t, 1, calls)

	failing := service.NewAdminService(env.users, nil, func(context.Context) error {
		return errors.New("boom")
	}, false, zap.NewNop())
	assert.Error(t, failing.InitDatabase(context.Background()))
}

func TestAdminService_DisabledInProduction(t *testing.T) {
	env := newTestEnv(t)
	admin := service.NewAdminService(env.users, nil, nil, true, zap.NewNop())
	ctx := context.Background()

	_, err := admin.EnsureTestUser(ctx)
	assert.ErrorIs(t, err, service.ErrProductionAdminAccess)
	assert.ErrorIs(t, admin.InitDatabase(ctx), service.ErrProductionAdminAccess)
	_, err = admin.ListUsers(ctx)
	assert.ErrorIs(t, err, service.ErrProductionAdminAccess)
}
