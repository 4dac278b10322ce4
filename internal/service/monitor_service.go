package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
)

// MonitorService orchestrates live survey monitoring.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
	templates   *TemplateService
	log         zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository, templates *TemplateService, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		monitorRepo: monitorRepo,
		templates:   templates,
		log:         log.With().Str("component", "monitor_service").Logger(),
	}
}

// MonitorSnapshot is the state of every response of one template.
type MonitorSnapshot struct {
	TemplateID uuid.UUID               `json:"template_id"`
	Responses  []repository.MonitorRow `json:"responses"`
	Counts     map[string]int          `json:"counts"`
}

// GetSnapshot returns stored progress merged with the size of each response's
// live answer buffer. Live counts are best-effort.
func (s *MonitorService) GetSnapshot(ctx context.Context, templateID uuid.UUID) (*MonitorSnapshot, error) {
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return nil, err
	}

	rows, err := s.monitorRepo.GetTemplateResponses(ctx, templateID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ResponseID
	}
	live, err := s.monitorRepo.GetLiveAnswerCounts(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Str("template_id", templateID.String()).Msg("Live answer counts unavailable")
	}

	return buildSnapshot(templateID, rows, live), nil
}

func buildSnapshot(templateID uuid.UUID, rows []repository.MonitorRow, live map[uuid.UUID]int64) *MonitorSnapshot {
	snap := &MonitorSnapshot{
		TemplateID: templateID,
		Responses:  rows,
		Counts:     make(map[string]int),
	}
	for i := range snap.Responses {
		snap.Responses[i].LiveAnswers = live[snap.Responses[i].ResponseID]
		snap.Counts[snap.Responses[i].Status]++
	}
	return snap
}

// Subscribe opens the progress channel of a template.
func (s *MonitorService) Subscribe(ctx context.Context, templateID uuid.UUID) *redis.PubSub {
	return s.monitorRepo.Subscribe(ctx, templateID)
}
