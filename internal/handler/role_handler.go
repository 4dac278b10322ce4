package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"github.com/stemsi/pemetaan-keswa/internal/validator"
)

// RoleHandler handles RBAC role management.
type RoleHandler struct {
	service *service.RoleService
	log     zerolog.Logger
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(service *service.RoleService, log zerolog.Logger) *RoleHandler {
	return &RoleHandler{service: service, log: log.With().Str("component", "role_handler").Logger()}
}

// ListRoles gets all roles with their associated permissions.
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GetRole gets a role and its permissions by ID.
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRoleByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// CreateRole creates a new role with given permissions.
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req model.RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// UpdateRole updates an existing role. Users keep their old permissions
// until they log in again.
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DeleteRole deletes a role without users.
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Peran berhasil dihapus"})
}

// GetPermissions lists all available permissions.
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.GetAllPermissions())
}
