package sqlgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/floatchat/floatchat/internal/infra/config"
)

// Fallback builds SQL from templates when the model is unavailable or its
// output cannot be validated. It answers a narrower class of questions than
// the model, but it always answers.
type Fallback struct {
	regions  map[string]config.Region
	rowLimit int
}

// DefaultRegions covers the named Indian Ocean regions.
func DefaultRegions() map[string]config.Region {
	return map[string]config.Region{
		"arabian sea":   {LatMin: 8, LatMax: 30, LonMin: 50, LonMax: 75},
		"bay of bengal": {LatMin: 5, LatMax: 22, LonMin: 80, LonMax: 100},
		"equator":       {LatMin: -5, LatMax: 5, LonMin: -180, LonMax: 180},
		"indian ocean":  {LatMin: -40, LatMax: 30, LonMin: 20, LonMax: 120},
	}
}

// NewFallback builds a Fallback. Empty regions fall back to the defaults;
// region names are matched with underscores normalized to spaces.
func NewFallback(regions map[string]config.Region, rowLimit int) *Fallback {
	if len(regions) == 0 {
		regions = DefaultRegions()
	}
	if rowLimit <= 0 {
		rowLimit = 100
	}
	normalized := make(map[string]config.Region, len(regions))
	for name, r := range regions {
		normalized[strings.ReplaceAll(strings.ToLower(name), "_", " ")] = r
	}
	return &Fallback{regions: normalized, rowLimit: rowLimit}
}

// parameterColumns maps question vocabulary to measurement columns.
var parameterColumns = []struct {
	re     *regexp.Regexp
	column string
}{
	{regexp.MustCompile(`\btemperature\b`), "temperature_celsius"},
	{regexp.MustCompile(`\bsalinit(y|ies)\b`), "salinity_psu"},
	{regexp.MustCompile(`\b(oxygen|doxy)\b`), "doxy_micromol_per_kg"},
	{regexp.MustCompile(`\b(chlorophyll|chla)\b`), "chla_microgram_per_l"},
	{regexp.MustCompile(`\bnitrate\b`), "nitrate_micromol_per_kg"},
}

var (
	wmoRe      = regexp.MustCompile(`\b(\d{7})\b`)
	daysBackRe = regexp.MustCompile(`\blast\s+(\d+)\s+(day|week|month)s?\b`)
	yearRe     = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	countRe    = regexp.MustCompile(`\b(how many|count|number of)\b`)
)

// Generate analyzes the question's intent and fills the matching template.
// It never fails; a question with no recognizable intent becomes a recent
// profile listing.
func (f *Fallback) Generate(question string) *Envelope {
	q := strings.ToLower(question)

	var (
		where     []string
		params    = map[string]string{}
		queryType = "listing"
	)

	if m := wmoRe.FindStringSubmatch(q); m != nil {
		where = append(where, fmt.Sprintf("wmo_id = %s", m[1]))
		params["wmo_id"] = m[1]
	}
	for name, r := range f.regions {
		if strings.Contains(q, name) {
			where = append(where,
				fmt.Sprintf("latitude BETWEEN %g AND %g", r.LatMin, r.LatMax),
				fmt.Sprintf("longitude BETWEEN %g AND %g", r.LonMin, r.LonMax))
			params["region"] = name
			break
		}
	}
	if m := daysBackRe.FindStringSubmatch(q); m != nil {
		unit := m[2] + "s"
		where = append(where, fmt.Sprintf("profile_date >= NOW() - INTERVAL '%s %s'", m[1], unit))
		params["window"] = m[1] + " " + unit
	} else if m := yearRe.FindStringSubmatch(q); m != nil {
		year, _ := strconv.Atoi(m[1]) //nolint:errcheck
		where = append(where,
			fmt.Sprintf("profile_date >= '%d-01-01'", year),
			fmt.Sprintf("profile_date < '%d-01-01'", year+1))
		params["year"] = m[1]
	}

	column := ""
	for _, p := range parameterColumns {
		if p.re.MatchString(q) {
			column = p.column
			params["parameter"] = p.column
			break
		}
	}

	var sql string
	switch {
	case countRe.MatchString(q):
		queryType = "aggregate"
		sql = "SELECT COUNT(*) AS profile_count FROM argo_profiles"
	case column != "":
		sql = fmt.Sprintf(
			"SELECT wmo_id, profile_date, latitude, longitude, %s, pressure_dbar FROM argo_profiles",
			column)
	default:
		sql = "SELECT wmo_id, profile_date, latitude, longitude FROM argo_profiles"
	}
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	if queryType != "aggregate" {
		sql += " ORDER BY profile_date DESC"
	}
	sql += fmt.Sprintf(" LIMIT %d", f.rowLimit)

	return &Envelope{
		SQLQuery:           sql,
		Explanation:        "Template-matched query built without model assistance.",
		Confidence:         0.3,
		QueryType:          queryType,
		ParametersDetected: params,
	}
}
