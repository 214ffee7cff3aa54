// Package catalog holds the static registry of climate variables. Each
// variable maps to its own observation relation in Postgres; the registry
// is the closed allowlist that makes identifier interpolation in the
// query builder safe.
package catalog

import "github.com/rotisserie/eris"

// ErrUnknownVariable is returned by Lookup for ids not in the registry.
// Callers must treat it as a request-validation failure, not a server fault.
var ErrUnknownVariable = eris.New("catalog: unknown variable")

// Descriptor describes one climate variable.
type Descriptor struct {
	// ID is the stable variable key, identical to the backing relation name.
	ID string `json:"id"`
	// Relation is the observation table joined against district_boundaries.
	Relation string `json:"relation"`
	// StartYear and EndYear bound the years for which observations exist.
	// They are advisory metadata for callers; queries outside the range are
	// passed through unchanged and simply return no rows.
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
	// Label and Unit are presentation metadata, unused in query logic.
	Label string `json:"label"`
	Unit  string `json:"unit"`
}

var variables = []Descriptor{
	{ID: "tas_min", Relation: "tas_min", StartYear: 1950, EndYear: 2100, Label: "Min. Temperature", Unit: "K"},
	{ID: "tas_max", Relation: "tas_max", StartYear: 1950, EndYear: 2100, Label: "Max. Temperature", Unit: "K"},
	{ID: "tas", Relation: "tas", StartYear: 1950, EndYear: 2100, Label: "Average Temperature", Unit: "K"},
	{ID: "precipitation_rate", Relation: "precipitation_rate", StartYear: 1950, EndYear: 2100, Label: "Precipitation Rate", Unit: "g/m^2/s"},
	{ID: "total_precipitation", Relation: "total_precipitation", StartYear: 1950, EndYear: 2100, Label: "Total Precipitation", Unit: "m"},
	{ID: "hurs", Relation: "hurs", StartYear: 1950, EndYear: 2100, Label: "Relative Humidity", Unit: "%"},
	{ID: "huss", Relation: "huss", StartYear: 1950, EndYear: 2100, Label: "Specific Humidity", Unit: "mass fraction"},
	{ID: "snowfall", Relation: "snowfall", StartYear: 1950, EndYear: 2023, Label: "Snowfall", Unit: "m of water equivalent"},
	{ID: "snowmelt", Relation: "snowmelt", StartYear: 1950, EndYear: 2023, Label: "Snowmelt", Unit: "m of water equivalent"},
	{ID: "spei", Relation: "spei", StartYear: 1985, EndYear: 2020, Label: "SPEI", Unit: "index"},
	{ID: "ozone", Relation: "ozone", StartYear: 1978, EndYear: 2025, Label: "Ozone", Unit: "Dobson unit"},
	{ID: "ndvi", Relation: "ndvi", StartYear: 1981, EndYear: 2013, Label: "NDVI", Unit: "index"},
	{ID: "sfc_windspeed", Relation: "sfc_windspeed", StartYear: 1950, EndYear: 2100, Label: "Surface Wind Speed", Unit: "m/s"},
}

var byID = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(variables))
	for _, d := range variables {
		m[d.ID] = d
	}
	return m
}()

// Lookup resolves a variable id to its descriptor.
func Lookup(id string) (Descriptor, error) {
	d, ok := byID[id]
	if !ok {
		return Descriptor{}, eris.Wrapf(ErrUnknownVariable, "catalog: lookup %q", id)
	}
	return d, nil
}

// All returns every registered descriptor in declaration order.
func All() []Descriptor {
	out := make([]Descriptor, len(variables))
	copy(out, variables)
	return out
}
