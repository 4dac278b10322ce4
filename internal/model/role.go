package model

import "time"

// Role represents an RBAC role.
type Role struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleWithPermissions extends Role to include its associated permissions.
type RoleWithPermissions struct {
	*Role
	Permissions []string `json:"permissions"`
}

// Built-in role names seeded by the migrations.
const (
	RoleSuperAdmin = "superadmin"
	RoleSurveyor   = "surveyor"
)

// RoleRequest is the payload for creating or updating a role.
type RoleRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=64"`
	Description string   `json:"description" binding:"omitempty,max=255"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,required"`
}
