// Package boundary manages the district polygon layer: loading district
// geometries from shapefiles into Postgres, listing the districts on
// record, and assembling GeoJSON feature collections for the map views.
package boundary

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/terraclim/atlas-cli/internal/db"
)

// Store reads and writes the district_boundaries table.
type Store struct {
	pool db.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// ListDistricts returns every district name on record, sorted ascending.
func (s *Store) ListDistricts(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT district FROM district_boundaries ORDER BY district ASC")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: list districts")
	}
	defer rows.Close()

	var districts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "boundary: scan district")
		}
		districts = append(districts, name)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "boundary: iterate districts")
	}
	return districts, nil
}
