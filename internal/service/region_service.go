package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/model"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/repository"
)

const districtCacheTTL = 24 * time.Hour

// Region is the fixed administrative area of the deployment.
type Region struct {
	Provinsi  string           `json:"provinsi"`
	Kabupaten string           `json:"kabupaten"`
	Districts []model.District `json:"districts"`
}

// RegionService serves geographic reference data. Provinsi and kabupaten are
// deployment constants; the kecamatan list lives in Postgres and is cached in
// Redis.
type RegionService struct {
	repo *repository.DistrictRepository
	rdb  *redis.Client
	cfg  *config.Config
	log  zerolog.Logger
}

// NewRegionService creates a new RegionService.
func NewRegionService(repo *repository.DistrictRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *RegionService {
	return &RegionService{
		repo: repo,
		rdb:  rdb,
		cfg:  cfg,
		log:  log.With().Str("component", "region_service").Logger(),
	}
}

// Region returns the deployment region with its districts.
func (s *RegionService) Region(ctx context.Context) (*Region, error) {
	districts, err := s.Districts(ctx)
	if err != nil {
		return nil, err
	}
	return &Region{
		Provinsi:  s.cfg.DefaultProvinsi,
		Kabupaten: s.cfg.DefaultKabupaten,
		Districts: districts,
	}, nil
}

// Districts returns the kecamatan list of the deployment's kabupaten.
func (s *RegionService) Districts(ctx context.Context) ([]model.District, error) {
	key := config.CacheKey.DistrictsKey(s.cfg.DefaultKabupaten)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var districts []model.District
		if err := json.Unmarshal(data, &districts); err == nil {
			return districts, nil
		}
		s.log.Warn().Str("key", key).Msg("Corrupt district cache, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("District cache unavailable, reading from database")
	}

	districts, err := s.repo.ListByKabupaten(ctx, s.cfg.DefaultKabupaten)
	if err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}

	if payload, err := json.Marshal(districts); err == nil {
		if err := s.rdb.Set(ctx, key, payload, districtCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache districts")
		}
	}
	return districts, nil
}

// Choices returns the districts as GEO_KECAMATAN choices.
func (s *RegionService) Choices(ctx context.Context) ([]questionnaire.Choice, error) {
	districts, err := s.Districts(ctx)
	if err != nil {
		return nil, err
	}
	return model.DistrictChoices(districts), nil
}

// Replace swaps the district list of the kabupaten and drops the cache.
func (s *RegionService) Replace(ctx context.Context, districts []model.DistrictInput) ([]model.District, error) {
	if err := s.repo.Replace(ctx, s.cfg.DefaultKabupaten, districts); err != nil {
		return nil, err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.DistrictsKey(s.cfg.DefaultKabupaten)).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to drop district cache")
	}
	s.log.Info().Int("count", len(districts)).Str("kabupaten", s.cfg.DefaultKabupaten).Msg("Districts replaced")
	return s.Districts(ctx)
}
