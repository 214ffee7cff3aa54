package series

import (
	"context"
	"encoding/json"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Record is one merged row keyed by date, with one column per district or
// variable. A key absent from a date is simply omitted, never zero and
// never null, so chart consumers must tolerate sparse keys.
type Record struct {
	Date   string
	Values map[string]float64
}

// MarshalJSON flattens the record into the shape chart consumers expect:
// {"date": "...", "<key>": <value>, ...}.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Values)+1)
	flat["date"] = r.Date
	for k, v := range r.Values {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// FetchMultiDistrict fetches one variable across many districts
// concurrently and merges the per-district series by date, one column per
// district name. Any sub-fetch failure fails the whole call; successful
// sub-results are discarded.
func (f *Fetcher) FetchMultiDistrict(ctx context.Context, variableID string, districts []string, rng Range) ([]Record, error) {
	if len(districts) == 0 {
		return nil, validationf("at least one district is required")
	}

	results := make([][]Point, len(districts))
	g, gctx := errgroup.WithContext(ctx)
	for i, district := range districts {
		g.Go(func() error {
			points, err := f.FetchSeries(gctx, variableID, district, rng)
			if err != nil {
				return err
			}
			results[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeByDate(districts, results), nil
}

// FetchMultiVariable fetches many variables for one district concurrently
// and merges by date, one column per variable id. Same all-or-nothing
// failure policy as FetchMultiDistrict.
func (f *Fetcher) FetchMultiVariable(ctx context.Context, district string, variableIDs []string, rng Range) ([]Record, error) {
	if len(variableIDs) == 0 {
		return nil, validationf("at least one variable is required")
	}

	results := make([][]Point, len(variableIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, variableID := range variableIDs {
		g.Go(func() error {
			points, err := f.FetchSeries(gctx, variableID, district, rng)
			if err != nil {
				return err
			}
			results[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeByDate(variableIDs, results), nil
}

// mergeByDate reduces the settled per-entity series into records keyed by
// date. Each goroutine above writes only its own slot, so the merge runs
// over immutable inputs and is independent of sub-fetch completion order.
// The output is sorted once, post-merge.
func mergeByDate(keys []string, results [][]Point) []Record {
	byDate := make(map[string]map[string]float64)
	for i, points := range results {
		for _, p := range points {
			if byDate[p.Date] == nil {
				byDate[p.Date] = make(map[string]float64, len(keys))
			}
			byDate[p.Date][keys[i]] = p.Value
		}
	}

	merged := make([]Record, 0, len(byDate))
	for date, values := range byDate {
		merged = append(merged, Record{Date: date, Values: values})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

// ToRecords converts a single series into merged-record form under the
// given column key, for consumers (exports) that handle all fetch modes
// uniformly.
func ToRecords(points []Point, key string) []Record {
	records := make([]Record, len(points))
	for i, p := range points {
		records[i] = Record{Date: p.Date, Values: map[string]float64{key: p.Value}}
	}
	return records
}
