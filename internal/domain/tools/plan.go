package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoPlan means neither the model nor pattern extraction produced any
// tool call for the question.
var ErrNoPlan = errors.New("tools: no executable plan")

// Call is one step of a plan. A call may depend on an earlier call; Bind
// maps its argument names to columns collected from the dependency's rows.
type Call struct {
	ID        string            `json:"id,omitempty"`
	Tool      string            `json:"tool"`
	Args      map[string]any    `json:"args,omitempty"`
	DependsOn string            `json:"depends_on,omitempty"`
	Bind      map[string]string `json:"bind,omitempty"`
}

// Key returns the call's identifier for dependency references: the explicit
// ID when set, the tool name otherwise.
func (c Call) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Tool
}

// Plan is an ordered list of calls.
type Plan struct {
	Calls []Call `json:"calls"`
}

var planFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParsePlan decodes a model-produced plan, tolerating markdown fences.
func ParsePlan(raw string) (*Plan, error) {
	payload := strings.TrimSpace(raw)
	if m := planFenceRe.FindStringSubmatch(payload); m != nil {
		payload = strings.TrimSpace(m[1])
	}
	if payload == "" {
		return nil, fmt.Errorf("tools: empty plan response")
	}
	var plan Plan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("tools: decode plan: %w", err)
	}
	if len(plan.Calls) == 0 {
		return nil, ErrNoPlan
	}
	return &plan, nil
}

// ─── pattern extraction fallback ─────────────────────────────────────────────

var (
	coordsRe  = regexp.MustCompile(`(?:^|[\s(])(-?\d{1,3}(?:\.\d+)?)\s*[,°]\s*(-?\d{1,3}(?:\.\d+)?)\b`)
	latLonRe  = regexp.MustCompile(`\blat(?:itude)?\s+(-?\d{1,3}(?:\.\d+)?)\b.*?\blon(?:gitude)?\s+(-?\d{1,3}(?:\.\d+)?)\b`)
	planWMORe = regexp.MustCompile(`\b(\d{7})\b`)
	limitRe   = regexp.MustCompile(`\b(?:nearest|closest|top|first)\s+(\d{1,2})\b`)
	radiusRe  = regexp.MustCompile(`\bwithin\s+(\d+)\s*km\b`)
	daysRe    = regexp.MustCompile(`\blast\s+(\d+)\s+days?\b`)
)

var planParameters = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`\btemperature\b`), "temperature"},
	{regexp.MustCompile(`\bsalinit(y|ies)\b`), "salinity"},
	{regexp.MustCompile(`\b(oxygen|doxy)\b`), "oxygen"},
	{regexp.MustCompile(`\b(chlorophyll|chla)\b`), "chlorophyll"},
	{regexp.MustCompile(`\bnitrate\b`), "nitrate"},
}

var planRegions = []string{"arabian sea", "bay of bengal", "indian ocean", "equator"}

// ExtractPlan builds a plan from question patterns alone, for when the
// model is unavailable. It recognizes the same operations the model can
// plan, keyed on coordinates, WMO identifiers and operation vocabulary.
func ExtractPlan(question string) (*Plan, error) {
	q := strings.ToLower(question)
	wmoIDs := extractWMOIDs(q)
	parameter := detectParameter(q)

	// Proximity: a coordinate pair drives a nearest-float search, chained
	// into a profile fetch for the floats found. Both "15.5, 72.8" and
	// "latitude 15.5 longitude 72.8" count as a pair.
	m := coordsRe.FindStringSubmatch(q)
	if m == nil {
		m = latLonRe.FindStringSubmatch(q)
	}
	if m != nil {
		lat, _ := strconv.ParseFloat(m[1], 64) //nolint:errcheck
		lon, _ := strconv.ParseFloat(m[2], 64) //nolint:errcheck
		args := map[string]any{"latitude": lat, "longitude": lon}
		if lm := limitRe.FindStringSubmatch(q); lm != nil {
			n, _ := strconv.Atoi(lm[1]) //nolint:errcheck
			args["limit"] = n
		}
		if rm := radiusRe.FindStringSubmatch(q); rm != nil {
			km, _ := strconv.ParseFloat(rm[1], 64) //nolint:errcheck
			args["max_distance_km"] = km
		}
		return &Plan{Calls: []Call{
			{Tool: "find_nearest_floats", Args: args},
			{
				Tool:      "fetch_profiles_for_floats",
				DependsOn: "find_nearest_floats",
				Bind:      map[string]string{"wmo_ids": "wmo_id"},
			},
		}}, nil
	}

	// Comparison needs at least two identified floats.
	if strings.Contains(q, "compare") && len(wmoIDs) >= 2 {
		if parameter == "" {
			parameter = "temperature"
		}
		return &Plan{Calls: []Call{{
			Tool: "compare_profiles",
			Args: map[string]any{"wmo_ids": toAnySlice(wmoIDs), "parameter": parameter},
		}}}, nil
	}

	// Trajectory for a single identified float.
	if (strings.Contains(q, "trajectory") || strings.Contains(q, "track") ||
		strings.Contains(q, "path") || strings.Contains(q, "drift")) && len(wmoIDs) >= 1 {
		args := map[string]any{"wmo_id": wmoIDs[0]}
		if dm := daysRe.FindStringSubmatch(q); dm != nil {
			n, _ := strconv.Atoi(dm[1]) //nolint:errcheck
			args["days_back"] = n
		}
		return &Plan{Calls: []Call{{Tool: "get_float_trajectory", Args: args}}}, nil
	}

	// Regional statistics when both a region and a parameter are named.
	if parameter != "" {
		for _, region := range planRegions {
			if strings.Contains(q, region) {
				return &Plan{Calls: []Call{{
					Tool: "get_regional_stats",
					Args: map[string]any{"region_name": region, "parameter": parameter},
				}}}, nil
			}
		}
	}

	return nil, ErrNoPlan
}

func extractWMOIDs(q string) []int64 {
	var out []int64
	for _, m := range planWMORe.FindAllStringSubmatch(q, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func detectParameter(q string) string {
	for _, p := range planParameters {
		if p.re.MatchString(q) {
			return p.name
		}
	}
	return ""
}

func toAnySlice(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
