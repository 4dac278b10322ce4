package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/middleware"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"github.com/stemsi/pemetaan-keswa/internal/validator"
)

// UserHandler handles user account management.
type UserHandler struct {
	userService *service.UserService
	authService *service.AuthService
	log         zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, authService *service.AuthService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
		log:         log.With().Str("component", "user_handler").Logger(),
	}
}

// ListUsers godoc
// GET /api/v1/users?role_id=&page=&per_page=
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, perPage := response.PageParams(c)
	roleID, _ := strconv.Atoi(c.Query("role_id"))

	users, pagination, err := h.userService.List(c.Request.Context(), roleID, page, perPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, pagination)
}

// GetUser godoc
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// CreateUser godoc
// POST /api/v1/users
// Creates a surveyor or administrator account.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// UpdateUser godoc
// PUT /api/v1/users/:id
// Updates a user. Role, password or activation changes sign the user out.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Administrators cannot lock themselves out.
	if claims := middleware.GetClaims(c); claims != nil && claims.UserID == id &&
		(req.RoleID != 0 || (req.IsActive != nil && !*req.IsActive)) {
		response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// ResetSession godoc
// DELETE /api/v1/users/:id/session
// Signs a user out of their device, e.g. after a lost phone.
func (h *UserHandler) ResetSession(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetSession(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	h.log.Info().Int("user_id", id).Msg("Session reset")
	response.Success(c, http.StatusOK, gin.H{"message": "Sesi pengguna telah direset"})
}
