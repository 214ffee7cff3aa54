package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraclim/atlas-cli/internal/boundary"
	"github.com/terraclim/atlas-cli/internal/config"
	"github.com/terraclim/atlas-cli/internal/monitoring"
	"github.com/terraclim/atlas-cli/internal/series"
)

func fp(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestServer(t *testing.T) (*Server, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	srv := New(
		series.NewFetcher(mock, nil),
		boundary.NewStore(mock),
		nil,
		nil,
		config.ServerConfig{CORSOrigins: []string{"*"}},
		30*time.Second,
	)
	return srv, mock
}

func doGet(t *testing.T, srv *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestVariables(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/variables")
	require.Equal(t, http.StatusOK, rec.Code)

	var vars []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vars))
	assert.Len(t, vars, 13)
	assert.Equal(t, "tas_min", vars[0]["id"])
}

func TestDistricts(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery("SELECT DISTINCT district").
		WillReturnRows(pgxmock.NewRows([]string{"district"}).AddRow("BAGLUNG").AddRow("KATHMANDU"))

	rec := doGet(t, srv, "/api/districts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["BAGLUNG","KATHMANDU"]`, rec.Body.String())
}

func TestDistricts_EmptyIsArray(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery("SELECT DISTINCT district").
		WillReturnRows(pgxmock.NewRows([]string{"district"}))

	rec := doGet(t, srv, "/api/districts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestData_MissingParams(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/data?variable=tas_min")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestData_UnknownVariable(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/data?variable=bogus&date=1990-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown variable")
}

func TestData_RejectsDateWithRange(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/data?variable=tas_min&date=1990-01-01&startDate=1990-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mutually exclusive")
}

func TestData_FeatureCollection(t *testing.T) {
	srv, mock := newTestServer(t)
	date := day("1990-01-01")
	geo := `{"type":"Polygon","coordinates":[[[85,27],[86,27],[86,28],[85,27]]]}`

	mock.ExpectQuery("ST_AsGeoJSON").
		WithArgs(date).
		WillReturnRows(pgxmock.NewRows([]string{"district", "geometry", "timestamp", "value"}).
			AddRow("KATHMANDU", []byte(geo), date, fp(268.4)))

	rec := doGet(t, srv, "/api/data?variable=tas_min&date=1990-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, rec.Body.String(), `"KATHMANDU"`)
}

func TestDataRange_InvertedRange(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/data-range?variable=tas_min&startDate=1991-01-01&endDate=1990-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must not be after")
}

func TestDataRange_FeatureCollection(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-03-01")
	geo := `{"type":"Polygon","coordinates":[[[85,27],[86,27],[86,28],[85,27]]]}`

	mock.ExpectQuery("ST_AsGeoJSON").
		WithArgs(start, end, "KATHMANDU").
		WillReturnRows(pgxmock.NewRows([]string{"district", "geometry", "timestamp", "value"}).
			AddRow("KATHMANDU", []byte(geo), start, fp(268.4)).
			AddRow("KATHMANDU", []byte(geo), end, fp(270.0)))

	rec := doGet(t, srv, "/api/data-range?variable=tas_min&startDate=1990-01-01&endDate=1990-03-01&district=KATHMANDU")
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Len(t, fc.Features, 2)
}

func TestSeries_SingleMode(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-03-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", day("1990-01-01"), fp(268.4)))

	rec := doGet(t, srv, "/api/series?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"1990-01-01","value":268.4}]`, rec.Body.String())
}

func TestSeries_EmptyIsJSONArray(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-03-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "NOWHERE").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}))

	rec := doGet(t, srv, "/api/series?variable=tas_min&district=NOWHERE&startDate=1990-01-01&endDate=1990-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSeries_MultiDistrict(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.MatchExpectationsInOrder(false)
	start, end := day("1990-01-01"), day("1990-01-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", start, fp(268.4)))
	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "POKHARA").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("POKHARA", start, fp(270.2)))

	rec := doGet(t, srv, "/api/series?variable=tas_min&district=KTM,POKHARA&startDate=1990-01-01&endDate=1990-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"1990-01-01","KTM":268.4,"POKHARA":270.2}]`, rec.Body.String())
}

// ?variable=a&variable=b and ?variable=a,b are equivalent.
func TestSeries_MultiVariableRepeatedParams(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.MatchExpectationsInOrder(false)
	start, end := day("1995-01-01"), day("1995-01-01")

	mock.ExpectQuery("JOIN tas_min t").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", start, fp(265.0)))
	mock.ExpectQuery("JOIN ndvi t").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", start, fp(0.42)))

	rec := doGet(t, srv, "/api/series?variable=tas_min&variable=ndvi&district=KTM&startDate=1995-01-01&endDate=1995-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"1995-01-01","tas_min":265,"ndvi":0.42}]`, rec.Body.String())
}

func TestSeries_MultiBothRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/series?variable=tas_min,tas_max&district=KTM,POKHARA&startDate=1990-01-01&endDate=1990-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot combine")
}

func TestSeries_StorageErrorIs500(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-03-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnError(fmt.Errorf("connection refused"))

	rec := doGet(t, srv, "/api/series?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-03-01")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Storage detail stays out of the body.
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestExport_CSV(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-01-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", start, fp(268.4)))

	rec := doGet(t, srv, "/api/export?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-01-01&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "atlas_tas_min.csv")
	assert.Equal(t, "date,tas_min\n1990-01-01,268.4\n", rec.Body.String())
}

// The export writes one row per month of the requested range; months
// the store has no data for come out as dated rows with empty cells.
func TestExport_CSVFillsMissingMonths(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-03-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", day("1990-01-01"), fp(268.4)).
			AddRow("KTM", day("1990-03-01"), fp(272.1)))

	rec := doGet(t, srv, "/api/export?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-03-01&format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "date,tas_min\n1990-01-01,268.4\n1990-02-01,\n1990-03-01,272.1\n", rec.Body.String())
}

func TestExport_XLSX(t *testing.T) {
	srv, mock := newTestServer(t)
	start, end := day("1990-01-01"), day("1990-01-01")

	mock.ExpectQuery("SELECT d.district, t.timestamp, t.value").
		WithArgs(start, end, "KTM").
		WillReturnRows(pgxmock.NewRows([]string{"district", "timestamp", "value"}).
			AddRow("KTM", start, fp(268.4)))

	rec := doGet(t, srv, "/api/export?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-01-01&format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestExport_UnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/api/export?variable=tas_min&district=KTM&startDate=1990-01-01&endDate=1990-01-01&format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Request metrics label by matched route pattern; arbitrary unmatched
// paths collapse into a single label instead of minting new series.
func TestRequestMetrics_LabelByRoutePattern(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reg := prometheus.NewRegistry()
	collector := monitoring.NewCollector(reg)
	srv := New(
		series.NewFetcher(mock, collector),
		boundary.NewStore(mock),
		collector,
		reg,
		config.ServerConfig{CORSOrigins: []string{"*"}},
		time.Second,
	)
	router := srv.Router()

	for _, path := range []string{"/api/variables", "/junk/one", "/junk/two"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 1, testutil.ToFloat64(
		collector.APIRequestsTotal.WithLabelValues("/api/variables", "GET", "200")), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(
		collector.APIRequestsTotal.WithLabelValues("unmatched", "GET", "404")), 0.001)
}

func TestRateLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	srv := New(
		series.NewFetcher(mock, nil),
		boundary.NewStore(mock),
		nil,
		nil,
		config.ServerConfig{CORSOrigins: []string{"*"}, RateLimitRPS: 1, RateBurst: 1},
		time.Second,
	)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
