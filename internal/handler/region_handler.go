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

// RegionHandler serves the deployment region and its kecamatan list.
type RegionHandler struct {
	regionService *service.RegionService
	log           zerolog.Logger
}

// NewRegionHandler creates a new RegionHandler.
func NewRegionHandler(regionService *service.RegionService, log zerolog.Logger) *RegionHandler {
	return &RegionHandler{regionService: regionService, log: log.With().Str("component", "region_handler").Logger()}
}

// GetRegion godoc
// GET /api/v1/regions/districts
func (h *RegionHandler) GetRegion(c *gin.Context) {
	region, err := h.regionService.Region(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, region)
}

// ReplaceDistricts godoc
// PUT /api/v1/regions/districts
// Replaces the kecamatan list. Districts still used by a facility cannot be
// removed.
func (h *RegionHandler) ReplaceDistricts(c *gin.Context) {
	var req model.ReplaceDistrictsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	districts, err := h.regionService.Replace(c.Request.Context(), req.Districts)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"districts": districts})
}
