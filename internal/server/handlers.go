package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/terraclim/atlas-cli/internal/catalog"
	"github.com/terraclim/atlas-cli/internal/export"
	"github.com/terraclim/atlas-cli/internal/query"
	"github.com/terraclim/atlas-cli/internal/series"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("http: encode response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the error taxonomy onto status codes: unknown variable
// and validation failures are client errors, storage failures are server
// errors with the detail kept out of the response body.
func writeError(w http.ResponseWriter, err error) {
	var verr *series.ValidationError
	switch {
	case errors.Is(err, catalog.ErrUnknownVariable):
		writeJSONError(w, http.StatusBadRequest, "unknown variable")
	case errors.As(err, &verr):
		writeJSONError(w, http.StatusBadRequest, verr.Msg)
	default:
		zap.L().Error("http: request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

// parseRange reads startDate/endDate, requiring both and start <= end.
func parseRange(r *http.Request) (series.Range, error) {
	startRaw := r.URL.Query().Get("startDate")
	endRaw := r.URL.Query().Get("endDate")
	if startRaw == "" || endRaw == "" {
		return series.Range{}, fmt.Errorf("startDate and endDate are required")
	}

	start, err := parseDate(startRaw)
	if err != nil {
		return series.Range{}, err
	}
	end, err := parseDate(endRaw)
	if err != nil {
		return series.Range{}, err
	}
	if start.After(end) {
		return series.Range{}, fmt.Errorf("startDate must not be after endDate")
	}
	return series.Range{Start: start, End: end}, nil
}

// splitList accepts both repeated query params and comma-separated
// values, so ?district=A&district=B and ?district=A,B are equivalent.
func splitList(values []string) []string {
	var out []string
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.All())
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	districts, err := s.store.ListDistricts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if districts == nil {
		districts = []string{}
	}
	writeJSON(w, http.StatusOK, districts)
}

// handleData serves the single-month choropleth: every district's value
// for one variable on one date, as a GeoJSON FeatureCollection.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	variable := r.URL.Query().Get("variable")
	dateRaw := r.URL.Query().Get("date")
	if variable == "" || dateRaw == "" {
		writeJSONError(w, http.StatusBadRequest, "variable and date are required")
		return
	}
	if r.URL.Query().Get("startDate") != "" || r.URL.Query().Get("endDate") != "" {
		writeJSONError(w, http.StatusBadRequest, "date and startDate/endDate are mutually exclusive")
		return
	}

	date, err := parseDate(dateRaw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	fc, err := s.store.FetchFeatures(ctx, variable, query.Filters{
		Date:     &date,
		District: r.URL.Query().Get("district"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleDataRange serves features across a month range, optionally
// narrowed to one district.
func (s *Server) handleDataRange(w http.ResponseWriter, r *http.Request) {
	variable := r.URL.Query().Get("variable")
	if variable == "" {
		writeJSONError(w, http.StatusBadRequest, "variable is required")
		return
	}
	if r.URL.Query().Get("date") != "" {
		writeJSONError(w, http.StatusBadRequest, "date and startDate/endDate are mutually exclusive")
		return
	}

	rng, err := parseRange(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	fc, err := s.store.FetchFeatures(ctx, variable, query.Filters{
		StartDate: &rng.Start,
		EndDate:   &rng.End,
		District:  r.URL.Query().Get("district"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// fetchForRequest dispatches on parameter cardinality: many districts
// merge by district, many variables merge by variable, one of each
// returns a plain series. Many of both is rejected.
func (s *Server) fetchForRequest(ctx context.Context, variables, districts []string, rng series.Range) (any, []string, error) {
	switch {
	case len(variables) > 1 && len(districts) > 1:
		return nil, nil, fmt.Errorf("cannot combine multiple variables with multiple districts")
	case len(districts) > 1:
		records, err := s.fetcher.FetchMultiDistrict(ctx, variables[0], districts, rng)
		return records, districts, err
	case len(variables) > 1:
		records, err := s.fetcher.FetchMultiVariable(ctx, districts[0], variables, rng)
		return records, variables, err
	default:
		points, err := s.fetcher.FetchSeries(ctx, variables[0], districts[0], rng)
		return points, []string{variables[0]}, err
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	variables := splitList(r.URL.Query()["variable"])
	districts := splitList(r.URL.Query()["district"])
	if len(variables) == 0 || len(districts) == 0 {
		writeJSONError(w, http.StatusBadRequest, "variable and district are required")
		return
	}

	rng, err := parseRange(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	result, _, err := s.fetchForRequest(ctx, variables, districts, rng)
	if err != nil {
		if len(variables) > 1 && len(districts) > 1 {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, err)
		return
	}

	// Empty series marshal as [], not null.
	switch v := result.(type) {
	case []series.Point:
		if v == nil {
			result = []series.Point{}
		}
	case []series.Record:
		if v == nil {
			result = []series.Record{}
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	variables := splitList(r.URL.Query()["variable"])
	districts := splitList(r.URL.Query()["district"])
	if len(variables) == 0 || len(districts) == 0 {
		writeJSONError(w, http.StatusBadRequest, "variable and district are required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	rng, err := parseRange(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	result, keys, err := s.fetchForRequest(ctx, variables, districts, rng)
	if err != nil {
		if len(variables) > 1 && len(districts) > 1 {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, err)
		return
	}

	var records []series.Record
	switch v := result.(type) {
	case []series.Point:
		records = series.ToRecords(v, keys[0])
	case []series.Record:
		records = v
	}
	records = export.FillMonths(records, rng.Start, rng.End)

	filename := fmt.Sprintf("atlas_%s.%s", strings.Join(variables, "_"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := export.WriteXLSX(w, variables[0], keys, records); err != nil {
			zap.L().Error("http: write xlsx export", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := export.WriteCSV(w, keys, records); err != nil {
		zap.L().Error("http: write csv export", zap.Error(err))
	}
}
