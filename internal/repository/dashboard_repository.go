package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (facilities, templates, responses, surveyors int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM facilities),
			(SELECT COUNT(*) FROM survey_templates WHERE status = 'PUBLISHED'),
			(SELECT COUNT(*) FROM survey_responses),
			(SELECT COUNT(*) FROM users u JOIN roles r ON u.role_id = r.id
			  WHERE r.name = $1 AND u.is_active)`,
		model.RoleSurveyor,
	).Scan(&facilities, &templates, &responses, &surveyors)
	return
}

// GetResponseStatusCounts retrieves the distribution of responses by status.
func (r *DashboardRepository) GetResponseStatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM survey_responses GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// GetFacilityTypeCounts retrieves the distribution of facilities by type.
func (r *DashboardRepository) GetFacilityTypeCounts(ctx context.Context) (map[model.FacilityType]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT type, COUNT(*) FROM facilities GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.FacilityType]int)
	for rows.Next() {
		var t model.FacilityType
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return nil, err
		}
		counts[t] = count
	}
	return counts, rows.Err()
}

// GetDistrictCoverage counts facilities and facilities with a submitted survey
// for every district of the kabupaten.
func (r *DashboardRepository) GetDistrictCoverage(ctx context.Context, kabupaten string) ([]model.DistrictCoverage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.name,
		        COUNT(DISTINCT f.id),
		        COUNT(DISTINCT sr.facility_id)
		 FROM districts d
		 LEFT JOIN facilities f ON f.district_id = d.id
		 LEFT JOIN survey_responses sr ON sr.facility_id = f.id AND sr.status = 'SUBMITTED'
		 WHERE d.kabupaten = $1
		 GROUP BY d.id, d.name
		 ORDER BY d.name`, kabupaten)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coverage := []model.DistrictCoverage{}
	for rows.Next() {
		var c model.DistrictCoverage
		if err := rows.Scan(&c.DistrictID, &c.DistrictName, &c.Facilities, &c.SurveyedCount); err != nil {
			return nil, err
		}
		coverage = append(coverage, c)
	}
	return coverage, rows.Err()
}
