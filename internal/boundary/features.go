package boundary

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/terraclim/atlas-cli/internal/catalog"
	"github.com/terraclim/atlas-cli/internal/query"
)

// FetchFeatures runs the spatial join for one variable and returns a
// GeoJSON FeatureCollection, one feature per matching (district, month)
// row. Rows with a NULL value or undecodable geometry are skipped; an
// unknown variable fails before any store access.
func (s *Store) FetchFeatures(ctx context.Context, variableID string, f query.Filters) (*geojson.FeatureCollection, error) {
	desc, err := catalog.Lookup(variableID)
	if err != nil {
		return nil, err
	}

	sql, args := query.BuildFeatures(desc, f)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: query features %s", desc.ID)
	}
	defer rows.Close()

	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	var skipped int

	for rows.Next() {
		var (
			district string
			geometry []byte
			ts       time.Time
			value    *float64
		)
		if err := rows.Scan(&district, &geometry, &ts, &value); err != nil {
			return nil, eris.Wrapf(err, "boundary: scan feature %s", desc.ID)
		}
		if value == nil {
			skipped++
			continue
		}

		var g geom.T
		if err := geojson.Unmarshal(geometry, &g); err != nil {
			skipped++
			continue
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       district,
			Geometry: g,
			Properties: map[string]any{
				"district":  district,
				"timestamp": ts.Format("2006-01-02"),
				"value":     *value,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: iterate features %s", desc.ID)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped feature rows",
			zap.String("variable", desc.ID),
			zap.Int("skipped", skipped),
		)
	}
	return fc, nil
}
