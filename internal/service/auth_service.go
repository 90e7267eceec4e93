package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authgate/internal/auth"
	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/repository"
)

const bcryptCost = 10

// AuthService handles user-facing authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	RequestPasswordReset(ctx context.Context, email string) (resetToken string, err error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	resetStore auth.ResetTokenStoreInterface
	cache      *UserListCache
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, resetStore auth.ResetTokenStoreInterface, cache *UserListCache) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		resetStore: resetStore,
		cache:      cache,
	}
}

// Register creates a new user with a hashed password. New users start
// unapproved and cannot log in until an administrator approves them.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	// Unique constraints also cover this, but checking first yields a
	// clean conflict error instead of a driver-specific one.
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrUserAlreadyExists
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrUserAlreadyExists
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		IsApproved:   false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.cache.Invalidate(ctx)
	return user, nil
}

// Login authenticates a user and returns a signed access token. Unknown
// email and wrong password produce the same error; an unapproved account
// with correct credentials is reported distinctly.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsApproved {
		return "", nil, apperrors.ErrApprovalPending
	}

	token, err := s.jwtService.GenerateUserToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// RequestPasswordReset issues a single-use reset token for the account
// behind email.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", apperrors.ErrUserNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	token, err := s.resetStore.Issue(user.ID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword redeems a reset token and overwrites the user's
// password. The token is consumed whether or not the update succeeds.
func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	userID, ok := s.resetStore.Redeem(resetToken)
	if !ok {
		return apperrors.ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
