package tools

import (
	"context"
	"fmt"

	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/infra/postgres"
)

// Runner is the executor surface the built-in tools need. *postgres.Executor
// satisfies it; tests substitute a fake.
type Runner interface {
	Query(ctx context.Context, sql string, args ...any) (*postgres.Result, error)
	CallFunction(ctx context.Context, name string, args ...any) (*postgres.Result, error)
}

// Defaults applied when optional arguments are omitted.
const (
	defaultNearestLimit  = 5
	defaultMaxDistanceKM = 500.0
	defaultDaysBack      = 30
	defaultMaxResults    = 100
)

// NewBuiltinRegistry registers the standard ARGO tool set. Every spatial and
// statistical tool maps onto a database function; execute_validated_query
// runs model SQL through the validator first.
func NewBuiltinRegistry(db Runner, validator *sqlgen.Validator) *Registry {
	r := NewRegistry()

	r.Register(&Tool{
		Name:        "find_nearest_floats",
		Description: "Finds the floats closest to a coordinate, nearest first.",
		Args: []ArgSpec{
			{Name: "latitude", Type: ArgNumber, Required: true, Description: "degrees, -90..90"},
			{Name: "longitude", Type: ArgNumber, Required: true, Description: "degrees, -180..180"},
			{Name: "limit", Type: ArgInteger, Description: "number of floats, default 5"},
			{Name: "max_distance_km", Type: ArgNumber, Description: "search radius, default 500"},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			lat := numArg(args, "latitude", 0)
			lon := numArg(args, "longitude", 0)
			if lat < -90 || lat > 90 {
				return nil, fmt.Errorf("%w: latitude %v out of range", ErrToolArgInvalid, lat)
			}
			if lon < -180 || lon > 180 {
				return nil, fmt.Errorf("%w: longitude %v out of range", ErrToolArgInvalid, lon)
			}
			return db.CallFunction(ctx, "find_nearest_floats",
				lat, lon,
				intArg(args, "limit", defaultNearestLimit),
				numArg(args, "max_distance_km", defaultMaxDistanceKM))
		},
	})

	r.Register(&Tool{
		Name:        "get_regional_stats",
		Description: "Aggregate statistics for a parameter over a named region.",
		Args: []ArgSpec{
			{Name: "region_name", Type: ArgString, Required: true},
			{Name: "parameter", Type: ArgString, Required: true},
			{Name: "start_date", Type: ArgString, Description: "ISO date, optional"},
			{Name: "end_date", Type: ArgString, Description: "ISO date, optional"},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			return db.CallFunction(ctx, "get_regional_stats",
				strArg(args, "region_name"),
				strArg(args, "parameter"),
				nullableStr(args, "start_date"),
				nullableStr(args, "end_date"))
		},
	})

	r.Register(&Tool{
		Name:        "compare_profiles",
		Description: "Compares a parameter across two or more floats.",
		Args: []ArgSpec{
			{Name: "wmo_ids", Type: ArgArray, Required: true, Description: "WMO identifiers"},
			{Name: "parameter", Type: ArgString, Required: true},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			ids, err := int64Slice(args["wmo_ids"])
			if err != nil {
				return nil, fmt.Errorf("%w: wmo_ids: %v", ErrToolArgInvalid, err)
			}
			if len(ids) < 2 {
				return nil, fmt.Errorf("%w: wmo_ids: need at least two floats", ErrToolArgInvalid)
			}
			return db.CallFunction(ctx, "compare_profiles", ids, strArg(args, "parameter"))
		},
	})

	r.Register(&Tool{
		Name:        "get_float_trajectory",
		Description: "Position history of one float over a trailing window.",
		Args: []ArgSpec{
			{Name: "wmo_id", Type: ArgInteger, Required: true},
			{Name: "days_back", Type: ArgInteger, Description: "window length, default 30"},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			return db.CallFunction(ctx, "get_float_trajectory",
				intArg(args, "wmo_id", 0),
				intArg(args, "days_back", defaultDaysBack))
		},
	})

	r.Register(&Tool{
		Name:        "execute_validated_query",
		Description: "Runs a SELECT statement after validation against the schema whitelist.",
		Args: []ArgSpec{
			{Name: "sql_query", Type: ArgString, Required: true},
			{Name: "query_type", Type: ArgString},
			{Name: "max_results", Type: ArgInteger, Description: "row cap, default 100"},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			validated, err := validator.Validate(strArg(args, "sql_query"))
			if err != nil {
				return nil, err
			}
			return db.Query(ctx, validated)
		},
	})

	r.Register(&Tool{
		Name:        "fetch_profiles_for_floats",
		Description: "Recent profiles for a set of floats, typically the output of find_nearest_floats.",
		Args: []ArgSpec{
			{Name: "wmo_ids", Type: ArgArray, Required: true},
		},
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			ids, err := int64Slice(args["wmo_ids"])
			if err != nil {
				return nil, fmt.Errorf("%w: wmo_ids: %v", ErrToolArgInvalid, err)
			}
			if len(ids) == 0 {
				return nil, fmt.Errorf("%w: wmo_ids: empty", ErrToolArgInvalid)
			}
			return db.Query(ctx, `
				SELECT wmo_id, cycle_number, profile_date, latitude, longitude,
				       pressure_dbar, temperature_celsius, salinity_psu
				FROM argo_profiles
				WHERE wmo_id = ANY($1)
				ORDER BY profile_date DESC
				LIMIT $2`, ids, defaultMaxResults)
		},
	})

	return r
}

// ─── argument helpers ────────────────────────────────────────────────────────

func numArg(args map[string]any, name string, def float64) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func strArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// nullableStr maps an absent or empty string argument to SQL NULL.
func nullableStr(args map[string]any, name string) any {
	s, ok := args[name].(string)
	if !ok || s == "" {
		return nil
	}
	return s
}

// int64Slice normalizes the shapes a wmo_ids argument can arrive in:
// JSON numbers, strings of digits, or native integer slices.
func int64Slice(v any) ([]int64, error) {
	switch vals := v.(type) {
	case []int64:
		return vals, nil
	case []float64:
		out := make([]int64, len(vals))
		for i, f := range vals {
			out[i] = int64(f)
		}
		return out, nil
	case []any:
		out := make([]int64, len(vals))
		for i, item := range vals {
			switch n := item.(type) {
			case float64:
				out[i] = int64(n)
			case int64:
				out[i] = n
			case int:
				out[i] = int64(n)
			case string:
				var parsed int64
				if _, err := fmt.Sscanf(n, "%d", &parsed); err != nil {
					return nil, fmt.Errorf("element %d: %q is not an integer", i, n)
				}
				out[i] = parsed
			default:
				return nil, fmt.Errorf("element %d: unsupported type %T", i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
