package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// DistrictRepository handles kecamatan reference data.
type DistrictRepository struct {
	pool *pgxpool.Pool
}

// NewDistrictRepository creates a new DistrictRepository.
func NewDistrictRepository(pool *pgxpool.Pool) *DistrictRepository {
	return &DistrictRepository{pool: pool}
}

// ListByKabupaten returns the districts of a kabupaten ordered by name.
func (r *DistrictRepository) ListByKabupaten(ctx context.Context, kabupaten string) ([]model.District, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, kabupaten FROM districts WHERE kabupaten = $1 ORDER BY name`, kabupaten)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	districts := []model.District{}
	for rows.Next() {
		var d model.District
		if err := rows.Scan(&d.ID, &d.Name, &d.Kabupaten); err != nil {
			return nil, err
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

// Replace upserts the given districts of a kabupaten and removes the ones no
// longer listed. Districts still referenced by a facility cannot be removed.
func (r *DistrictRepository) Replace(ctx context.Context, kabupaten string, districts []model.DistrictInput) error {
	ids := make([]string, len(districts))
	names := make([]string, len(districts))
	for i, d := range districts {
		ids[i] = d.ID
		names[i] = d.Name
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO districts (id, name, kabupaten)
			 SELECT u.id, u.name, $3 FROM UNNEST($1::text[], $2::text[]) AS u (id, name)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kabupaten = EXCLUDED.kabupaten`,
			ids, names, kabupaten); err != nil {
			return translate(err)
		}
		_, err := tx.Exec(ctx,
			`DELETE FROM districts WHERE kabupaten = $1 AND NOT (id = ANY($2::text[]))`, kabupaten, ids)
		return translate(err)
	})
}
