package service

import (
	"context"

	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"golang.org/x/sync/errgroup"
)

const recentResponseLimit = 5

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo      *repository.DashboardRepository
	responses *repository.SurveyResponseRepository
	cfg       *config.Config
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository, responses *repository.SurveyResponseRepository, cfg *config.Config) *DashboardService {
	return &DashboardService{repo: repo, responses: responses, cfg: cfg}
}

// GetDashboardData fetches all dashboard metrics concurrently.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*model.DashboardData, error) {
	data := &model.DashboardData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		data.TotalFacilities, data.TotalTemplates, data.TotalResponses, data.TotalSurveyors, err =
			s.repo.GetSummaryCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.ResponseStatusCounts, err = s.repo.GetResponseStatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.FacilityTypeCounts, err = s.repo.GetFacilityTypeCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.DistrictCoverage, err = s.repo.GetDistrictCoverage(gctx, s.cfg.DefaultKabupaten)
		return err
	})
	g.Go(func() error {
		var err error
		data.RecentResponses, _, err = s.responses.List(gctx, model.SurveyFilter{}, recentResponseLimit, 0)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
