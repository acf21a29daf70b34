package knowledge

// BuiltinChunks is the curated context set shipped with the binary. It covers
// the ARGO schema, Indian Ocean geography, date conventions, worked examples,
// BGC parameters, generation rules and QC semantics. An external knowledge
// database overrides this set entirely.
func BuiltinChunks() []Chunk {
	chunks := []Chunk{
		{
			ID:       "schema-floats",
			Category: CategorySchema,
			Title:    "Table argo_floats",
			Content: `Table argo_floats: one row per deployed float.
Columns: wmo_id (integer, primary key, 7-digit WMO identifier),
deployment_date (date), float_type (text), institution (text),
float_category (text, 'core' or 'bgc').`,
			Keywords:   []string{"float", "wmo", "deployment", "institution", "argo_floats"},
			Importance: 1.0,
		},
		{
			ID:       "schema-profiles",
			Category: CategorySchema,
			Title:    "Table argo_profiles",
			Content: `Table argo_profiles: one row per vertical profile (one float cycle).
Columns: profile_id (integer, primary key), wmo_id (integer, references argo_floats),
cycle_number (integer), profile_date (timestamp), latitude (float, -90..90),
longitude (float, -180..180), float_category (text), data_mode (text, 'R' realtime
'A' adjusted 'D' delayed), pressure_dbar (float array), temperature_celsius (float array),
salinity_psu (float array), doxy_micromol_per_kg (float array),
chla_microgram_per_l (float array), nitrate_micromol_per_kg (float array),
and matching *_qc arrays with per-level quality flags.
Measurement arrays are index-aligned: temperature_celsius[i] was measured at
pressure_dbar[i].`,
			Keywords:   []string{"profile", "temperature", "salinity", "pressure", "cycle", "argo_profiles", "latitude", "longitude"},
			Importance: 1.0,
		},
		{
			ID:       "geo-regions",
			Category: CategoryGeography,
			Title:    "Named ocean regions",
			Content: `Named region bounds (latitude, longitude in degrees):
Arabian Sea: lat 8 to 30, lon 50 to 75.
Bay of Bengal: lat 5 to 22, lon 80 to 100.
Equatorial band: lat -5 to 5, any longitude.
Indian Ocean: lat -40 to 30, lon 20 to 120.
Filter profiles by region with WHERE latitude BETWEEN .. AND latitude .. AND
longitude BETWEEN .. AND longitude ...`,
			Keywords:   []string{"arabian", "bengal", "equator", "indian", "region", "ocean", "sea", "bay"},
			Importance: 0.9,
		},
		{
			ID:       "temporal-conventions",
			Category: CategoryTemporal,
			Title:    "Date handling",
			Content: `profile_date is a timestamp. For 'last N days' use
profile_date >= NOW() - INTERVAL 'N days'. For a named month use
date_trunc('month', profile_date). Years in questions like 'in 2023' map to
profile_date >= '2023-01-01' AND profile_date < '2024-01-01'.`,
			Keywords:   []string{"date", "month", "year", "recent", "last", "days", "interval", "2023", "2024"},
			Importance: 0.7,
		},
		{
			ID:       "example-region-query",
			Category: CategoryExamples,
			Title:    "Example: profiles in a region",
			Content: `Question: show temperature profiles in the Arabian Sea from March 2023.
SELECT wmo_id, profile_date, latitude, longitude, temperature_celsius, pressure_dbar
FROM argo_profiles
WHERE latitude BETWEEN 8 AND 30 AND longitude BETWEEN 50 AND 75
  AND profile_date >= '2023-03-01' AND profile_date < '2023-04-01'
ORDER BY profile_date DESC
LIMIT 100;`,
			Keywords:   []string{"example", "temperature", "arabian", "region", "select"},
			Importance: 0.8,
		},
		{
			ID:       "example-float-lookup",
			Category: CategoryExamples,
			Title:    "Example: single float history",
			Content: `Question: salinity measurements from float 2902746.
SELECT cycle_number, profile_date, salinity_psu, pressure_dbar
FROM argo_profiles
WHERE wmo_id = 2902746
ORDER BY cycle_number
LIMIT 100;`,
			Keywords:   []string{"example", "salinity", "wmo", "float", "cycle"},
			Importance: 0.6,
		},
		{
			ID:       "bgc-parameters",
			Category: CategoryBGC,
			Title:    "BGC parameters",
			Content: `Biogeochemical (BGC) floats additionally report dissolved oxygen
(doxy_micromol_per_kg), chlorophyll-a (chla_microgram_per_l) and nitrate
(nitrate_micromol_per_kg). Restrict BGC questions to float_category = 'bgc';
core floats leave these arrays NULL.`,
			Keywords:   []string{"oxygen", "doxy", "chlorophyll", "chla", "nitrate", "bgc", "biogeochemical"},
			Importance: 0.7,
		},
		{
			ID:       "rules-sql",
			Category: CategoryRules,
			Title:    "SQL generation rules",
			Content: `Only SELECT statements. Only tables argo_floats and argo_profiles.
Always include a LIMIT clause, default 100. Never use SELECT * on
argo_profiles: measurement arrays are large, name the needed columns.
Join on wmo_id when float metadata is needed alongside profile data.`,
			Keywords:   []string{"select", "limit", "join", "rules"},
			Importance: 0.9,
		},
		{
			ID:       "quality-flags",
			Category: CategoryQuality,
			Title:    "QC flag semantics",
			Content: `QC arrays hold single-character flags per measurement level:
'1' good, '2' probably good, '3' probably bad, '4' bad, '9' missing.
For science-grade answers prefer data_mode = 'D' (delayed mode) and QC flags
'1' or '2'.`,
			Keywords:   []string{"quality", "qc", "flag", "good", "bad", "delayed", "data_mode"},
			Importance: 0.5,
		},
	}
	for i := range chunks {
		chunks[i].TokenCount = EstimateTokens(chunks[i].Content)
	}
	return chunks
}
