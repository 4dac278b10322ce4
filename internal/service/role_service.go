package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
)

// Role errors.
var (
	ErrSystemRole        = errors.New("the superadmin role cannot be modified")
	ErrUnknownPermission = errors.New("unknown permission code")
)

// RoleService handles business logic for roles.
type RoleService struct {
	roleRepo *repository.RoleRepository
}

// NewRoleService creates a new RoleService.
func NewRoleService(roleRepo *repository.RoleRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo}
}

// ListRoles retrieves all roles with their permissions.
func (s *RoleService) ListRoles(ctx context.Context) ([]model.RoleWithPermissions, error) {
	return s.roleRepo.ListRolesWithPermissions(ctx)
}

// GetRoleByID retrieves a specific role and its permissions.
func (s *RoleService) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	return s.roleRepo.GetRoleByID(ctx, id)
}

// CreateRole creates a new role with its permissions.
func (s *RoleService) CreateRole(ctx context.Context, req *model.RoleRequest) (*model.RoleWithPermissions, error) {
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}
	if req.Name == model.RoleSuperAdmin {
		return nil, ErrSystemRole
	}

	id, err := s.roleRepo.CreateRole(ctx, req.Name, req.Description, req.Permissions)
	if err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// UpdateRole replaces a role's name, description and permissions.
func (s *RoleService) UpdateRole(ctx context.Context, id int, req *model.RoleRequest) (*model.RoleWithPermissions, error) {
	if err := s.guardSystemRole(ctx, id); err != nil {
		return nil, err
	}
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}

	if err := s.roleRepo.UpdateRole(ctx, id, req.Name, req.Description, req.Permissions); err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// DeleteRole deletes a role. Roles still assigned to users are refused by the
// database.
func (s *RoleService) DeleteRole(ctx context.Context, id int) error {
	if err := s.guardSystemRole(ctx, id); err != nil {
		return err
	}
	return s.roleRepo.DeleteRole(ctx, id)
}

// GetAllPermissions retrieves all available system permission codes.
func (s *RoleService) GetAllPermissions() []string {
	perms := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		perms[i] = string(p)
	}
	return perms
}

// SyncSuperAdmin makes sure the permission catalog is complete and that the
// superadmin role holds every permission. It returns the number of grants
// added.
func (s *RoleService) SyncSuperAdmin(ctx context.Context) (int64, error) {
	if err := s.roleRepo.EnsurePermissionCatalog(ctx); err != nil {
		return 0, fmt.Errorf("ensure permission catalog: %w", err)
	}
	role, err := s.roleRepo.GetRoleByName(ctx, model.RoleSuperAdmin)
	if err != nil {
		return 0, fmt.Errorf("find superadmin role: %w", err)
	}
	return s.roleRepo.GrantAllPermissions(ctx, role.ID)
}

func (s *RoleService) guardSystemRole(ctx context.Context, id int) error {
	role, err := s.roleRepo.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Name == model.RoleSuperAdmin {
		return ErrSystemRole
	}
	return nil
}

func checkPermissions(codes []string) error {
	for _, c := range codes {
		if !model.IsValidPermission(c) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, c)
		}
	}
	return nil
}
