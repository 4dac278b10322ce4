package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/middleware"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	"github.com/stemsi/pemetaan-keswa/internal/validator"
)

// SurveyHandler handles facility survey responses over REST. Live editing
// goes through WSHandler.
type SurveyHandler struct {
	surveyService *service.SurveyService
	log           zerolog.Logger
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(surveyService *service.SurveyService, log zerolog.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveyService: surveyService,
		log:           log.With().Str("component", "survey_handler").Logger(),
	}
}

func canReadAll(claims *service.Claims) bool {
	return claims.HasPermission(string(model.PermissionSurveysReadAll))
}

// ListSurveys godoc
// GET /api/v1/surveys?template_id=&facility_id=&surveyor_id=&status=&page=&per_page=
// Surveyors only list their own responses.
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filter, fields := parseSurveyFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !canReadAll(claims) {
		own := claims.UserID
		filter.SurveyorID = &own
	}

	page, perPage := response.PageParams(c)
	rows, pagination, err := h.surveyService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"surveys": rows}, pagination)
}

func parseSurveyFilter(c *gin.Context) (model.SurveyFilter, map[string]string) {
	var (
		f      model.SurveyFilter
		fields = map[string]string{}
	)
	if v := c.Query("template_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.TemplateID = &id
		} else {
			fields["template_id"] = "template_id must be a UUID"
		}
	}
	if v := c.Query("facility_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.FacilityID = &id
		} else {
			fields["facility_id"] = "facility_id must be a UUID"
		}
	}
	if v := c.Query("surveyor_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			f.SurveyorID = &id
		} else {
			fields["surveyor_id"] = "surveyor_id must be a number"
		}
	}
	switch s := questionnaire.Status(c.Query("status")); s {
	case "", questionnaire.StatusDraft, questionnaire.StatusSubmitted:
		f.Status = s
	default:
		fields["status"] = "status must be one of DRAFT SUBMITTED"
	}
	if len(fields) > 0 {
		return f, fields
	}
	return f, nil
}

// GetSurvey godoc
// GET /api/v1/surveys/:id
// Returns a response with its live answers.
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.surveyService.Get(c.Request.Context(), id, claims.UserID, canReadAll(claims))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// GetSurveyOutline godoc
// GET /api/v1/surveys/:id/outline
// Returns active sections, progress and, for drafts, validation errors.
func (h *SurveyHandler) GetSurveyOutline(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	outline, err := h.surveyService.Outline(c.Request.Context(), id, claims.UserID, canReadAll(claims))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	localizeOutline(outline)
	response.Success(c, http.StatusOK, outline)
}

// CreateSurvey godoc
// POST /api/v1/surveys
// Starts a response on a PUBLISHED template with its first draft save.
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	h.saveDraft(c, nil)
}

// SaveSurveyDraft godoc
// PUT /api/v1/surveys/:id
// Overwrites the answers of an own DRAFT response. No validation is applied.
func (h *SurveyHandler) SaveSurveyDraft(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	h.saveDraft(c, &id)
}

func (h *SurveyHandler) saveDraft(c *gin.Context, id *uuid.UUID) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveSurveyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.surveyService.SaveDraft(c.Request.Context(), claims.UserID, id, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	response.Success(c, status, resp)
}

type finalizeRequest struct {
	Answers questionnaire.AnswerSet `json:"answers"`
}

// FinalizeSurvey godoc
// POST /api/v1/surveys/:id/finalize
// Validates every active section and freezes the response. Without a body
// the live answers are submitted.
func (h *SurveyHandler) FinalizeSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	receipt, err := h.surveyService.Finalize(c.Request.Context(), claims.UserID, id, req.Answers)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, receipt)
}
