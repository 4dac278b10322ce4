package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, log: log.With().Str("component", "dashboard_handler").Logger()}
}

// GetDashboardData godoc
// GET /api/v1/dashboard
// Returns stat cards, response and facility distributions, district coverage
// and the latest responses.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	data, err := h.dashboardService.GetDashboardData(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
