// Package query constructs the parameterized spatial-join statements that
// every fetch mode executes. The only identifier ever interpolated into
// SQL text is the observation relation name, and it comes exclusively from
// a catalog.Descriptor resolved against the closed variable registry.
// Every value (dates, district names) travels as a positional bind
// parameter.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/terraclim/atlas-cli/internal/catalog"
)

// Filters holds the optional predicates of a spatial-join query. Date and
// the Start/End pair are mutually exclusive forms: when Date is set the
// range is ignored. The request boundary rejects requests carrying both,
// so the builder never has to guess.
type Filters struct {
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	District  string
}

// BuildSeries returns the statement and positional arguments for a
// time-series fetch: one row per (district, month) with the native-unit
// value. No WHERE clause is emitted when no filter is present.
func BuildSeries(desc catalog.Descriptor, f Filters) (string, []any) {
	base := fmt.Sprintf(
		`SELECT d.district, t.timestamp, t.value
FROM district_boundaries d
JOIN %s t ON d.district = t.district_name`,
		desc.Relation,
	)
	return assemble(base, f)
}

// BuildFeatures is BuildSeries with the district geometry projected as
// GeoJSON, used by the choropleth endpoints.
func BuildFeatures(desc catalog.Descriptor, f Filters) (string, []any) {
	base := fmt.Sprintf(
		`SELECT d.district, ST_AsGeoJSON(d.geom) AS geometry, t.timestamp, t.value
FROM district_boundaries d
JOIN %s t ON d.district = t.district_name`,
		desc.Relation,
	)
	return assemble(base, f)
}

// assemble appends the WHERE clause. Predicate order is deterministic:
// exact date, then range (only when no exact date), then district.
// Placeholders are numbered in assembly order starting at $1.
func assemble(base string, f Filters) (string, []any) {
	var conditions []string
	var args []any

	if f.Date != nil {
		conditions = append(conditions, fmt.Sprintf("t.timestamp::DATE = $%d", len(args)+1))
		args = append(args, *f.Date)
	} else if f.StartDate != nil && f.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("t.timestamp::DATE BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, *f.StartDate, *f.EndDate)
	}

	if f.District != "" {
		conditions = append(conditions, fmt.Sprintf("d.district = $%d", len(args)+1))
		args = append(args, f.District)
	}

	if len(conditions) == 0 {
		return base, args
	}
	return base + "\nWHERE " + strings.Join(conditions, " AND "), args
}
