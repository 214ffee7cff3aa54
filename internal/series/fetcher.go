// Package series implements the data-range query core: single-series
// fetching against the spatial store plus the multi-district and
// multi-variable fan-out mergers that feed charts, comparisons and
// heatmaps.
package series

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/terraclim/atlas-cli/internal/catalog"
	"github.com/terraclim/atlas-cli/internal/db"
	"github.com/terraclim/atlas-cli/internal/monitoring"
	"github.com/terraclim/atlas-cli/internal/query"
)

// Range is an inclusive month range. The core does not require
// Start <= End; an inverted range simply yields an empty series from
// storage. The HTTP boundary rejects inverted ranges before they get here.
type Range struct {
	Start time.Time
	End   time.Time
}

// Fetcher executes series queries against the store pool.
type Fetcher struct {
	pool    db.Pool
	metrics *monitoring.Collector
}

// NewFetcher creates a Fetcher. metrics may be nil.
func NewFetcher(pool db.Pool, metrics *monitoring.Collector) *Fetcher {
	return &Fetcher{pool: pool, metrics: metrics}
}

// FetchSeries returns the normalized month series for one variable and one
// district. An unknown variable fails with catalog.ErrUnknownVariable
// before any store access; an unknown district yields an empty series,
// which is a success, not an error.
func (f *Fetcher) FetchSeries(ctx context.Context, variableID, district string, rng Range) ([]Point, error) {
	desc, err := catalog.Lookup(variableID)
	if err != nil {
		return nil, err
	}
	if district == "" {
		return nil, validationf("district is required")
	}
	if rng.Start.IsZero() || rng.End.IsZero() {
		return nil, validationf("start and end dates are required")
	}

	sql, args := query.BuildSeries(desc, query.Filters{
		StartDate: &rng.Start,
		EndDate:   &rng.End,
		District:  district,
	})

	started := time.Now()
	rows, err := f.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, storagef("query "+desc.ID, err)
	}
	defer rows.Close()

	var raw []Observation
	for rows.Next() {
		var (
			name  string
			ts    time.Time
			value *float64
		)
		if err := rows.Scan(&name, &ts, &value); err != nil {
			return nil, storagef("scan "+desc.ID, err)
		}
		raw = append(raw, Observation{Date: ts, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, storagef("iterate "+desc.ID, err)
	}

	points, dropped := Normalize(raw)
	if f.metrics != nil {
		f.metrics.ObserveSeriesQuery(desc.ID, time.Since(started), len(points), dropped)
	}
	if dropped > 0 {
		zap.L().Debug("series: dropped malformed rows",
			zap.String("variable", desc.ID),
			zap.String("district", district),
			zap.Int("dropped", dropped),
		)
	}
	return points, nil
}
