package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/response"
)

// ErrUnknownRole is returned when a user is assigned a role that does not exist.
var ErrUnknownRole = errors.New("unknown role")

// UserService handles user accounts and login.
type UserService struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	auth     *AuthService
	log      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	auth *AuthService,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		auth:     auth,
		log:      log.With().Str("component", "user_service").Logger(),
	}
}

// Login verifies credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	permissions, err := s.roleRepo.GetPermissionsByRoleID(ctx, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	token, err := s.auth.GenerateToken(ctx, user.ID, user.RoleID, permissions)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", user.ID).Str("role", user.RoleName).Msg("User logged in")
	return &model.LoginResponse{Token: token, User: *user, Permissions: permissions}, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetPermissions retrieves permission codes for a role.
func (s *UserService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
}

// List retrieves a page of users, optionally filtered by role.
func (s *UserService) List(ctx context.Context, roleID, page, perPage int) ([]model.User, *response.Pagination, error) {
	users, total, err := s.userRepo.List(ctx, roleID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return users, response.NewPagination(page, perPage, total), nil
}

// Create registers a new active user.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if _, err := s.roleRepo.GetRoleByID(ctx, req.RoleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownRole
		}
		return nil, err
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Int("user_id", user.ID).Int("role_id", user.RoleID).Msg("User created")
	return s.userRepo.GetByID(ctx, user.ID)
}

// Update applies the non-empty fields of req. Deactivating a user or changing
// their password also signs them out.
func (s *UserService) Update(ctx context.Context, id int, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	signOut := false
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.RoleID != 0 && req.RoleID != user.RoleID {
		if _, err := s.roleRepo.GetRoleByID(ctx, req.RoleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnknownRole
			}
			return nil, err
		}
		user.RoleID = req.RoleID
		signOut = true
	}
	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		signOut = true
	}
	if req.IsActive != nil {
		if user.IsActive && !*req.IsActive {
			signOut = true
		}
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if signOut {
		if err := s.auth.ResetSession(ctx, id); err != nil {
			s.log.Warn().Err(err).Int("user_id", id).Msg("Failed to reset session after update")
		}
	}
	return s.userRepo.GetByID(ctx, id)
}
