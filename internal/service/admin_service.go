package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/mapper"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Test account created by the admin endpoint
const (
	TestUserEmail    = "test@example.com"
	TestUserPassword = "password123"
	testUserName     = "Test User"
	testUniversity   = "Test University"
)

// MigrateFunc applies the database schema
type MigrateFunc func(ctx context.Context) error

// TestUserResult reports the test account and whether it was created by this call
type TestUserResult struct {
	Created  bool
	User     domain.AdminUserDTO
	Password string
}

// AdminService backs the development-only maintenance endpoints
type AdminService struct {
	userRepo   *repository.UserRepository
	hasher     *auth.PasswordHasher
	migrate    MigrateFunc
	production bool
	logger     *zap.Logger
}

func NewAdminService(
	userRepo *repository.UserRepository,
	hasher *auth.PasswordHasher,
	migrate MigrateFunc,
	production bool,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		hasher:     hasher,
		migrate:    migrate,
		production: production,
		logger:     logger,
	}
}

// EnsureTestUser creates the shared test account unless it already exists
func (s *AdminService) EnsureTestUser(ctx context.Context) (*TestUserResult, error) {
	if s.production {
		return nil, ErrProductionAdminAccess
	}

	existing, err := s.userRepo.GetByEmail(ctx, TestUserEmail)
	if err == nil {
		return &TestUserResult{User: mapper.ToAdminUserDTO(existing), Password: TestUserPassword}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check test user: %w", err)
	}

	hash, err := s.hasher.Hash(TestUserPassword)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:          testUserName,
		Email:         TestUserEmail,
		PasswordHash:  hash,
		University:    testUniversity,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, mapper.FormatError("test user", "create", err)
	}

	s.logger.Info("test user created", zap.String("user_id", user.ID.String()))
	return &TestUserResult{Created: true, User: mapper.ToAdminUserDTO(user), Password: TestUserPassword}, nil
}

// InitDatabase applies the schema migrations
func (s *AdminService) InitDatabase(ctx context.Context) error {
	if s.production {
		return ErrProductionAdminAccess
	}
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.logger.Info("database initialized")
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.AdminUserDTO, error) {
	if s.production {
		return nil, ErrProductionAdminAccess
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.AdminUserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToAdminUserDTO(&users[i])
	}
	return dtos, nil
}
