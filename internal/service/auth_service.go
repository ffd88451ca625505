package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/mapper"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

type AuthService struct {
	userRepo *repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	mailer   *email.Mailer
	logger   *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	mailer *email.Mailer,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
	}
}

// Register creates an account, issues a token and sends the verification email.
// A failed verification email is logged but does not fail the registration.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	emailAddr := normalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(ctx, emailAddr); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	verifyToken, verifyHash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:                  strings.TrimSpace(req.Name),
		Email:                 emailAddr,
		PasswordHash:          hash,
		University:            strings.TrimSpace(req.University),
		IsActive:              true,
		VerificationTokenHash: &verifyHash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, _, err := s.tokens.Generate(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, user, verifyToken); err != nil {
		s.logger.Warn("failed to send verification email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))

	return &domain.AuthResponse{
		Message: "User registered successfully",
		User:    mapper.ToUserDTO(user),
		Token:   token,
	}, nil
}

// Login verifies credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	token, _, err := s.tokens.Generate(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))

	return &domain.AuthResponse{
		Message: "Login successful",
		User:    mapper.ToUserDTO(user),
		Token:   token,
	}, nil
}

// ForgotPassword stores a reset token and emails it. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return err
	}

	expires := time.Now().UTC().Add(resetTokenTTL)
	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"reset_token_hash":       hash,
		"reset_token_expires_at": expires,
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user, token); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	s.logger.Info("password reset requested", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password using a valid reset token and consumes the token
func (s *AuthService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	user, err := s.userRepo.GetByResetTokenHash(ctx, auth.HashOpaqueToken(req.Token), time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"password_hash":          hash,
		"reset_token_hash":       nil,
		"reset_token_expires_at": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyEmail marks the address owning token as verified
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.GetByVerificationTokenHash(ctx, auth.HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"email_verified":          true,
		"verification_token_hash": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	s.logger.Info("email verified", zap.String("user_id", user.ID.String()))
	return nil
}

// Me returns the authenticated user's own view
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
