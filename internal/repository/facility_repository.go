package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// FacilityRepository handles facility registry data access.
type FacilityRepository struct {
	pool *pgxpool.Pool
}

// NewFacilityRepository creates a new FacilityRepository.
func NewFacilityRepository(pool *pgxpool.Pool) *FacilityRepository {
	return &FacilityRepository{pool: pool}
}

const facilityColumns = `f.id, f.code, f.name, f.type, f.address, f.district_id, COALESCE(d.name, ''),
	f.desa, f.latitude, f.longitude, f.phone, f.created_at, f.updated_at`

const facilityFrom = ` FROM facilities f LEFT JOIN districts d ON d.id = f.district_id`

func scanFacility(row rowScanner) (*model.Facility, error) {
	f := &model.Facility{}
	err := row.Scan(&f.ID, &f.Code, &f.Name, &f.Type, &f.Address, &f.DistrictID, &f.DistrictName,
		&f.Desa, &f.Latitude, &f.Longitude, &f.Phone, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

// GetByID retrieves a facility by ID.
func (r *FacilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	return scanFacility(r.pool.QueryRow(ctx,
		`SELECT `+facilityColumns+facilityFrom+` WHERE f.id = $1`, id))
}

// List retrieves a page of facilities matching the filter.
func (r *FacilityRepository) List(ctx context.Context, filter model.FacilityFilter, limit, offset int) ([]model.Facility, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND (f.name ILIKE ` + placeholder(args) + ` OR f.code ILIKE ` + placeholder(args) + `)`
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += ` AND f.type = ` + placeholder(args)
	}
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		where += ` AND f.district_id = ` + placeholder(args)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+facilityFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitArg := placeholder(args)
	args = append(args, offset)
	offsetArg := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+facilityColumns+facilityFrom+where+`
		 ORDER BY f.name LIMIT `+limitArg+` OFFSET `+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	facilities := []model.Facility{}
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, 0, err
		}
		facilities = append(facilities, *f)
	}
	return facilities, total, rows.Err()
}

// Create inserts a new facility.
func (r *FacilityRepository) Create(ctx context.Context, f *model.Facility) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO facilities (code, name, type, address, district_id, desa, latitude, longitude, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		f.Code, f.Name, f.Type, f.Address, f.DistrictID, f.Desa, f.Latitude, f.Longitude, f.Phone,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	return translate(err)
}

// Update persists every editable field of a facility.
func (r *FacilityRepository) Update(ctx context.Context, f *model.Facility) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE facilities
		 SET code = $1, name = $2, type = $3, address = $4, district_id = $5, desa = $6,
		     latitude = $7, longitude = $8, phone = $9, updated_at = NOW()
		 WHERE id = $10
		 RETURNING updated_at`,
		f.Code, f.Name, f.Type, f.Address, f.DistrictID, f.Desa, f.Latitude, f.Longitude, f.Phone, f.ID,
	).Scan(&f.UpdatedAt)
	return translate(err)
}

// Delete removes a facility. Facilities with survey responses cannot be
// deleted.
func (r *FacilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
