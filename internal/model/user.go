package model

import "time"

// User is a dashboard or field account. Surveyors and administrators share
// the table and differ only by role permissions.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	RoleID       int       `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest is the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token       string   `json:"token"`
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=3,max=255"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	RoleID   int    `json:"role_id" binding:"required,min=1"`
}

// UpdateUserRequest is the payload for updating a user. Empty fields are left
// unchanged.
type UpdateUserRequest struct {
	Name     string `json:"name" binding:"omitempty,min=3,max=255"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	RoleID   int    `json:"role_id" binding:"omitempty,min=1"`
	IsActive *bool  `json:"is_active"`
}
