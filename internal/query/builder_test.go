package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraclim/atlas-cli/internal/catalog"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func mustLookup(t *testing.T, id string) catalog.Descriptor {
	t.Helper()
	d, err := catalog.Lookup(id)
	require.NoError(t, err)
	return d
}

func TestBuildSeries_RangeAndDistrict(t *testing.T) {
	desc := mustLookup(t, "tas_min")
	sql, args := BuildSeries(desc, Filters{
		StartDate: date("1990-01-01"),
		EndDate:   date("1990-03-01"),
		District:  "KTM",
	})

	assert.Contains(t, sql, "JOIN tas_min t ON d.district = t.district_name")
	assert.Contains(t, sql, "t.timestamp::DATE BETWEEN $1 AND $2")
	assert.Contains(t, sql, "d.district = $3")
	require.Len(t, args, 3)
	assert.Equal(t, *date("1990-01-01"), args[0])
	assert.Equal(t, *date("1990-03-01"), args[1])
	assert.Equal(t, "KTM", args[2])
}

func TestBuildSeries_ExactDate(t *testing.T) {
	desc := mustLookup(t, "ndvi")
	sql, args := BuildSeries(desc, Filters{Date: date("2000-06-01")})

	assert.Contains(t, sql, "t.timestamp::DATE = $1")
	assert.NotContains(t, sql, "BETWEEN")
	require.Len(t, args, 1)
}

func TestBuildSeries_ExactDateSupersedesRange(t *testing.T) {
	desc := mustLookup(t, "tas")
	sql, args := BuildSeries(desc, Filters{
		Date:      date("2000-06-01"),
		StartDate: date("1990-01-01"),
		EndDate:   date("1999-12-01"),
	})

	assert.Contains(t, sql, "t.timestamp::DATE = $1")
	assert.NotContains(t, sql, "BETWEEN")
	require.Len(t, args, 1)
	assert.Equal(t, *date("2000-06-01"), args[0])
}

func TestBuildSeries_PartialRangeIgnored(t *testing.T) {
	desc := mustLookup(t, "tas")
	sql, args := BuildSeries(desc, Filters{StartDate: date("1990-01-01"), District: "KTM"})

	// A lone start date contributes no predicate; only the district binds.
	assert.NotContains(t, sql, "BETWEEN")
	assert.Contains(t, sql, "d.district = $1")
	require.Len(t, args, 1)
}

func TestBuildSeries_NoFilters(t *testing.T) {
	desc := mustLookup(t, "hurs")
	sql, args := BuildSeries(desc, Filters{})

	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

// District names containing SQL metacharacters must appear only in the
// argument list, never in the statement text.
func TestBuildSeries_InjectionSafety(t *testing.T) {
	desc := mustLookup(t, "tas_min")
	hostile := `'; DROP TABLE district_boundaries; --`
	sql, args := BuildSeries(desc, Filters{
		StartDate: date("1990-01-01"),
		EndDate:   date("1990-03-01"),
		District:  hostile,
	})

	assert.NotContains(t, sql, hostile)
	assert.NotContains(t, sql, "DROP TABLE")
	require.Len(t, args, 3)
	assert.Equal(t, hostile, args[2])
	assert.Contains(t, sql, "d.district = $3")
}

func TestBuildFeatures_GeometryProjection(t *testing.T) {
	desc := mustLookup(t, "precipitation_rate")
	sql, args := BuildFeatures(desc, Filters{Date: date("2001-07-01"), District: "POKHARA"})

	assert.Contains(t, sql, "ST_AsGeoJSON(d.geom) AS geometry")
	assert.Contains(t, sql, "JOIN precipitation_rate t")
	assert.Contains(t, sql, "t.timestamp::DATE = $1")
	assert.Contains(t, sql, "d.district = $2")
	require.Len(t, args, 2)
}

func TestBuild_PlaceholderNumberingIsSequential(t *testing.T) {
	desc := mustLookup(t, "tas_max")
	sql, _ := BuildSeries(desc, Filters{
		StartDate: date("1990-01-01"),
		EndDate:   date("1991-01-01"),
		District:  "KTM",
	})

	for _, ph := range []string{"$1", "$2", "$3"} {
		assert.True(t, strings.Contains(sql, ph), "missing placeholder %s", ph)
	}
	assert.NotContains(t, sql, "$4")
}
