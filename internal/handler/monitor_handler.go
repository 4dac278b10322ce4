package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // keeps a slow query from stalling the SSE loop
)

// MonitorHandler streams live survey progress to the dashboard.
type MonitorHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// GetSnapshot godoc
// GET /api/v1/templates/:id/monitor/snapshot
// Returns the current progress of every response of a template.
func (h *MonitorHandler) GetSnapshot(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	snap, err := h.monitorService.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// MonitorTemplateSSE godoc
// GET /api/v1/templates/:id/monitor
// Streams a snapshot, then every progress event of the template, with a
// periodic refresh while surveys are active.
func (h *MonitorHandler) MonitorTemplateSSE(c *gin.Context) {
	templateID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	reqCtx := c.Request.Context()

	snap, err := h.monitorService.GetSnapshot(reqCtx, templateID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "snapshot", snap)
	c.Writer.Flush()

	pubsub := h.monitorService.Subscribe(reqCtx, templateID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes until something happens on the channel.
	active := false

	h.log.Info().Str("template_id", templateID.String()).Msg("Monitor attached")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("template_id", templateID.String()).Msg("Monitor detached")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are published as {"type":...,"data":...}; forward as is.
			io.WriteString(c.Writer, "data: "+msg.Payload+"\n\n")
			c.Writer.Flush()
			active = true

		case <-refreshTicker.C:
			if !active {
				continue
			}
			h.sendRefresh(c, reqCtx, templateID)

		case <-keepAliveTicker.C:
			io.WriteString(c.Writer, "data: {\"type\":\"ping\"}\n\n")
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) sendRefresh(c *gin.Context, parent context.Context, templateID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	snap, err := h.monitorService.GetSnapshot(ctx, templateID)
	if err != nil {
		h.log.Warn().Err(err).Str("template_id", templateID.String()).Msg("Monitor refresh failed")
		return
	}
	writeSSE(c.Writer, "refresh", snap)
	c.Writer.Flush()
}

// writeSSE writes one data frame of the form {"type":..., "data":...}.
func writeSSE(w io.Writer, eventType string, data interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "data: "+string(payload)+"\n\n")
	return err
}
