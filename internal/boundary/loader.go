package boundary

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terraclim/atlas-cli/internal/db"
)

// DefaultNameField is the attribute holding the district name in the
// boundary shapefiles we ingest.
const DefaultNameField = "DISTRICT"

// LoadShapefile parses district polygons from a shapefile and upserts
// them into district_boundaries keyed by district name, so reloading an
// updated boundary file replaces geometries in place. nameField selects
// the DBF attribute carrying the district name; empty means
// DefaultNameField. Returns the number of rows written.
func (s *Store) LoadShapefile(ctx context.Context, shpPath, nameField string) (int64, error) {
	if nameField == "" {
		nameField = DefaultNameField
	}

	rows, err := parseShapefile(shpPath, nameField)
	if err != nil {
		return 0, err
	}

	n, err := s.writeDistricts(ctx, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("boundary: loaded shapefile",
		zap.String("path", shpPath),
		zap.Int64("rows", n),
	)
	return n, nil
}

var districtColumns = []string{"district", "geom"}

// writeDistricts persists parsed boundary rows. An empty table takes the
// plain COPY fast path; otherwise rows merge through the temp-table
// upsert so reloads replace geometries in place.
func (s *Store) writeDistricts(ctx context.Context, rows [][]any) (int64, error) {
	var existing int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM district_boundaries").Scan(&existing); err != nil {
		return 0, eris.Wrap(err, "boundary: count districts")
	}

	if existing == 0 {
		n, err := db.CopyFrom(ctx, s.pool, "district_boundaries", districtColumns, rows)
		if err != nil {
			return 0, eris.Wrap(err, "boundary: copy districts")
		}
		return n, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "district_boundaries",
		Columns:      districtColumns,
		ConflictKeys: []string{"district"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "boundary: upsert districts")
	}
	return n, nil
}

// parseShapefile reads polygon records and returns (district, geom) rows
// ready for COPY loading. Records with an empty name, a non-polygon
// shape, or an unencodable geometry are skipped.
func parseShapefile(shpPath, nameField string) ([][]any, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("boundary: shapefile %s has no %q field", shpPath, nameField)
	}

	var rows [][]any
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		wkb, encErr := EncodePolygon(shape)
		if encErr != nil || wkb == nil {
			skipped++
			continue
		}

		rows = append(rows, []any{name, wkb})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return rows, nil
}
