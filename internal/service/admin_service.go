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

// AdminService handles administrator authentication and the user
// approval lifecycle.
type AdminService interface {
	Setup(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (token string, admin *model.Admin, err error)
	ApproveUser(ctx context.Context, userID uint) error
	DisapproveUser(ctx context.Context, userID uint) error
	DeleteUser(ctx context.Context, userID uint) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

type adminService struct {
	adminRepo  repository.AdminRepository
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	cache      *UserListCache
}

// NewAdminService creates a new admin service.
func NewAdminService(adminRepo repository.AdminRepository, userRepo repository.UserRepository, jwtService *auth.JWTService, cache *UserListCache) AdminService {
	return &adminService{
		adminRepo:  adminRepo,
		userRepo:   userRepo,
		jwtService: jwtService,
		cache:      cache,
	}
}

// Setup stores admin credentials, inserting only if the email is not
// already present. It deliberately does not report which case occurred.
func (s *adminService) Setup(ctx context.Context, email, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.adminRepo.CreateIfAbsent(ctx, admin); err != nil {
		return fmt.Errorf("store admin: %w", err)
	}
	return nil
}

// Login authenticates an administrator and returns a token carrying the
// admin identity claim.
func (s *adminService) Login(ctx context.Context, email, password string) (string, *model.Admin, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAdminToken(admin.ID)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, admin, nil
}

// ApproveUser marks a user as approved, allowing login.
func (s *adminService) ApproveUser(ctx context.Context, userID uint) error {
	return s.setApproval(ctx, userID, true)
}

// DisapproveUser revokes a user's approval. Tokens issued before the
// change stay valid until they expire; there is no server-side
// revocation.
func (s *adminService) DisapproveUser(ctx context.Context, userID uint) error {
	return s.setApproval(ctx, userID, false)
}

func (s *adminService) setApproval(ctx context.Context, userID uint, approved bool) error {
	if err := s.userRepo.SetApproval(ctx, userID, approved); err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("set approval: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// DeleteUser removes a user row.
func (s *adminService) DeleteUser(ctx context.Context, userID uint) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ListUsers returns all users ordered by id ascending.
func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	if users, ok := s.cache.Get(ctx); ok {
		return users, nil
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	s.cache.Set(ctx, users)
	return users, nil
}
