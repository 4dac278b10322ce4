package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/middleware"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"github.com/stemsi/pemetaan-keswa/internal/validator"
)

// TemplateHandler handles questionnaire template authoring and lookup.
type TemplateHandler struct {
	templateService *service.TemplateService
	log             zerolog.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService *service.TemplateService, log zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		log:             log.With().Str("component", "template_handler").Logger(),
	}
}

// ListTemplates godoc
// GET /api/v1/templates?status=&page=&per_page=
// Authors see every status; everyone else only sees PUBLISHED templates.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	status := model.TemplateStatus(c.Query("status"))
	if !claims.HasPermission(string(model.PermissionTemplatesWrite)) {
		status = model.TemplateStatusPublished
	}
	switch status {
	case "", model.TemplateStatusDraft, model.TemplateStatusPublished, model.TemplateStatusArchived:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"status": "status must be one of DRAFT PUBLISHED ARCHIVED"})
		return
	}

	page, perPage := response.PageParams(c)
	templates, pagination, err := h.templateService.List(c.Request.Context(), status, page, perPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"templates": templates}, pagination)
}

// GetTemplate godoc
// GET /api/v1/templates/:id
// Returns a template with its section tree. Non-authors can only read
// PUBLISHED templates, which come with the district list filled in.
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if claims.HasPermission(string(model.PermissionTemplatesWrite)) {
		t, err := h.templateService.GetByID(c.Request.Context(), id)
		if err != nil {
			fail(c, h.log, err)
			return
		}
		response.Success(c, http.StatusOK, t)
		return
	}

	engine, t, err := h.templateService.PublishedEngine(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	out := *t
	out.Sections = engine.Template().Sections
	response.Success(c, http.StatusOK, out)
}

// CreateTemplate godoc
// POST /api/v1/templates
// Stores a new DRAFT version of a template code. Lint issues are returned as
// warnings.
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.TemplateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, issues, err := h.templateService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"template": t, "lint": issues})
}

// UpdateTemplate godoc
// PUT /api/v1/templates/:id
// Replaces the content of a DRAFT template.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.TemplateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, issues, err := h.templateService.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"template": t, "lint": issues})
}

// NewVersion godoc
// POST /api/v1/templates/:id/versions
// Copies a template into a new DRAFT version of its code.
func (h *TemplateHandler) NewVersion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	t, err := h.templateService.NewVersion(c.Request.Context(), claims.UserID, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, t)
}

// LintTemplate godoc
// GET /api/v1/templates/:id/lint
func (h *TemplateHandler) LintTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	issues, err := h.templateService.Lint(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"issues": issues, "publishable": len(issues) == 0})
}

// PublishTemplate godoc
// POST /api/v1/templates/:id/publish
// Publishes a lint-clean DRAFT and caches its definition.
func (h *TemplateHandler) PublishTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.templateService.Publish(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Template berhasil dipublikasikan"})
}

// ArchiveTemplate godoc
// POST /api/v1/templates/:id/archive
// Stops new surveys on a PUBLISHED template.
func (h *TemplateHandler) ArchiveTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.templateService.Archive(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Template berhasil diarsipkan"})
}

// EvaluateTemplate godoc
// POST /api/v1/templates/:id/evaluate
// Previews active sections, progress and optionally validation errors for an
// answer set.
func (h *TemplateHandler) EvaluateTemplate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.EvaluateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outline, err := h.templateService.Evaluate(c.Request.Context(), id, req.Answers, req.Validate)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	localizeOutline(outline)
	response.Success(c, http.StatusOK, outline)
}
