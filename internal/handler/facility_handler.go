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

// FacilityHandler handles the facility registry.
type FacilityHandler struct {
	facilityService *service.FacilityService
	log             zerolog.Logger
}

// NewFacilityHandler creates a new FacilityHandler.
func NewFacilityHandler(facilityService *service.FacilityService, log zerolog.Logger) *FacilityHandler {
	return &FacilityHandler{facilityService: facilityService, log: log.With().Str("component", "facility_handler").Logger()}
}

// ListFacilities godoc
// GET /api/v1/facilities?search=&type=&district_id=&page=&per_page=
func (h *FacilityHandler) ListFacilities(c *gin.Context) {
	page, perPage := response.PageParams(c)
	filter := model.FacilityFilter{
		Search:     c.Query("search"),
		Type:       model.FacilityType(c.Query("type")),
		DistrictID: c.Query("district_id"),
	}

	facilities, pagination, err := h.facilityService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"facilities": facilities}, pagination)
}

// GetFacility godoc
// GET /api/v1/facilities/:id
func (h *FacilityHandler) GetFacility(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	f, err := h.facilityService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// CreateFacility godoc
// POST /api/v1/facilities
func (h *FacilityHandler) CreateFacility(c *gin.Context) {
	var req model.FacilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f, err := h.facilityService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, f)
}

// UpdateFacility godoc
// PUT /api/v1/facilities/:id
func (h *FacilityHandler) UpdateFacility(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.FacilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f, err := h.facilityService.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// DeleteFacility godoc
// DELETE /api/v1/facilities/:id
// Facilities with survey responses cannot be deleted.
func (h *FacilityHandler) DeleteFacility(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.facilityService.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Fasilitas berhasil dihapus"})
}
