package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
	"github.com/stemsi/pemetaan-keswa/internal/response"
)

// ErrUnknownDistrict is returned when a facility names a kecamatan outside the
// deployment's kabupaten.
var ErrUnknownDistrict = errors.New("unknown district")

// FacilityService manages the facility registry that surveys are attached to.
type FacilityService struct {
	repo    *repository.FacilityRepository
	regions *RegionService
	log     zerolog.Logger
}

// NewFacilityService creates a new FacilityService.
func NewFacilityService(repo *repository.FacilityRepository, regions *RegionService, log zerolog.Logger) *FacilityService {
	return &FacilityService{
		repo:    repo,
		regions: regions,
		log:     log.With().Str("component", "facility_service").Logger(),
	}
}

// List retrieves a page of facilities.
func (s *FacilityService) List(ctx context.Context, filter model.FacilityFilter, page, perPage int) ([]model.Facility, *response.Pagination, error) {
	facilities, total, err := s.repo.List(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return facilities, response.NewPagination(page, perPage, total), nil
}

// GetByID retrieves a facility.
func (s *FacilityService) GetByID(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a facility.
func (s *FacilityService) Create(ctx context.Context, req *model.FacilityRequest) (*model.Facility, error) {
	if err := s.checkDistrict(ctx, req.DistrictID); err != nil {
		return nil, err
	}
	f := facilityFromRequest(req)
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info().Str("facility_id", f.ID.String()).Str("code", f.Code).Msg("Facility created")
	return s.repo.GetByID(ctx, f.ID)
}

// Update replaces every editable field of a facility.
func (s *FacilityService) Update(ctx context.Context, id uuid.UUID, req *model.FacilityRequest) (*model.Facility, error) {
	if err := s.checkDistrict(ctx, req.DistrictID); err != nil {
		return nil, err
	}
	f := facilityFromRequest(req)
	f.ID = id
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a facility without survey responses.
func (s *FacilityService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("facility_id", id.String()).Msg("Facility deleted")
	return nil
}

func (s *FacilityService) checkDistrict(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	districts, err := s.regions.Districts(ctx)
	if err != nil {
		return err
	}
	for _, d := range districts {
		if d.ID == *id {
			return nil
		}
	}
	return ErrUnknownDistrict
}

func facilityFromRequest(req *model.FacilityRequest) *model.Facility {
	f := &model.Facility{
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
		Address:   req.Address,
		Desa:      req.Desa,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Phone:     req.Phone,
	}
	if req.DistrictID != nil && *req.DistrictID != "" {
		id := *req.DistrictID
		f.DistrictID = &id
	}
	return f
}
