package series

import (
	"math"
	"sort"
	"time"
)

// Point is one observation of a single-variable, single-district series.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Observation is a raw store row before normalization. Value is nil when
// the store returned NULL.
type Observation struct {
	Date  time.Time
	Value *float64
}

// Normalize turns raw rows into a clean series: rows whose value is NULL,
// NaN or infinite are dropped (never defaulted), dates are formatted as
// ISO day strings and the result is sorted ascending. When two rows share
// a date the later one wins. The dropped-row count is returned so callers
// can surface it for diagnostics.
func Normalize(raw []Observation) ([]Point, int) {
	points := make([]Point, 0, len(raw))
	dropped := 0
	for _, obs := range raw {
		if obs.Value == nil || math.IsNaN(*obs.Value) || math.IsInf(*obs.Value, 0) {
			dropped++
			continue
		}
		points = append(points, Point{
			Date:  obs.Date.Format("2006-01-02"),
			Value: *obs.Value,
		})
	}

	// Stable sort keeps input order within a date, so keeping the last
	// occurrence implements the later-row-wins tie-break.
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	deduped := points[:0]
	for i, p := range points {
		if i+1 < len(points) && points[i+1].Date == p.Date {
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped, dropped
}

// MonthsBetween returns the first-of-month dates from start through end
// inclusive, stepping one month at a time.
func MonthsBetween(start, end time.Time) []time.Time {
	var months []time.Time
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}
