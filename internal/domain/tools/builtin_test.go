package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/infra/postgres"
)

// fakeRunner records calls and returns an empty result.
type fakeRunner struct {
	lastSQL  string
	lastFunc string
	lastArgs []any
}

func (f *fakeRunner) Query(_ context.Context, sql string, args ...any) (*postgres.Result, error) {
	f.lastSQL = sql
	f.lastArgs = args
	return &postgres.Result{}, nil
}

func (f *fakeRunner) CallFunction(_ context.Context, name string, args ...any) (*postgres.Result, error) {
	f.lastFunc = name
	f.lastArgs = args
	return &postgres.Result{}, nil
}

func builtinFixture(t *testing.T) (*Registry, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	return NewBuiltinRegistry(runner, sqlgen.NewValidator(nil, 100)), runner
}

func runTool(t *testing.T, r *Registry, name string, args map[string]any) (any, error) {
	t.Helper()
	tool, err := r.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	if err := ValidateArgs(tool, args); err != nil {
		return nil, err
	}
	return tool.Run(context.Background(), args)
}

func TestBuiltinToolSet(t *testing.T) {
	t.Parallel()

	r, _ := builtinFixture(t)
	want := []string{
		"compare_profiles",
		"execute_validated_query",
		"fetch_profiles_for_floats",
		"find_nearest_floats",
		"get_float_trajectory",
		"get_regional_stats",
	}
	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(list), len(want))
	}
	for i, tool := range list {
		if tool.Name != want[i] {
			t.Errorf("tool[%d] = %s, want %s", i, tool.Name, want[i])
		}
	}
}

func TestFindNearestFloats(t *testing.T) {
	t.Parallel()

	r, runner := builtinFixture(t)
	_, err := runTool(t, r, "find_nearest_floats", map[string]any{
		"latitude": 15.5, "longitude": 72.8, "limit": float64(5),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if runner.lastFunc != "find_nearest_floats" {
		t.Errorf("function = %q", runner.lastFunc)
	}
	// lat, lon, limit, default radius
	if len(runner.lastArgs) != 4 || runner.lastArgs[0] != 15.5 || runner.lastArgs[2] != 5 {
		t.Errorf("args = %v", runner.lastArgs)
	}
	if runner.lastArgs[3] != defaultMaxDistanceKM {
		t.Errorf("radius = %v, want default", runner.lastArgs[3])
	}
}

func TestFindNearestFloatsRangeCheck(t *testing.T) {
	t.Parallel()

	r, _ := builtinFixture(t)
	_, err := runTool(t, r, "find_nearest_floats", map[string]any{
		"latitude": 95.0, "longitude": 72.8,
	})
	if !errors.Is(err, ErrToolArgInvalid) {
		t.Errorf("err = %v, want ErrToolArgInvalid", err)
	}
}

func TestCompareProfilesNeedsTwoFloats(t *testing.T) {
	t.Parallel()

	r, _ := builtinFixture(t)
	_, err := runTool(t, r, "compare_profiles", map[string]any{
		"wmo_ids": []any{float64(2902746)}, "parameter": "salinity",
	})
	if !errors.Is(err, ErrToolArgInvalid) {
		t.Errorf("err = %v, want ErrToolArgInvalid", err)
	}

	runner := &fakeRunner{}
	r2 := NewBuiltinRegistry(runner, sqlgen.NewValidator(nil, 100))
	_, err = runTool(t, r2, "compare_profiles", map[string]any{
		"wmo_ids": []any{float64(2902746), float64(2902747)}, "parameter": "salinity",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	ids, ok := runner.lastArgs[0].([]int64)
	if !ok || len(ids) != 2 || ids[0] != 2902746 {
		t.Errorf("ids arg = %v", runner.lastArgs[0])
	}
}

func TestGetRegionalStatsOptionalDates(t *testing.T) {
	t.Parallel()

	r, runner := builtinFixture(t)
	_, err := runTool(t, r, "get_regional_stats", map[string]any{
		"region_name": "arabian sea", "parameter": "temperature",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// absent dates become SQL NULL
	if runner.lastArgs[2] != nil || runner.lastArgs[3] != nil {
		t.Errorf("date args = %v, want nils", runner.lastArgs[2:])
	}
}

func TestExecuteValidatedQueryRejectsMutation(t *testing.T) {
	t.Parallel()

	r, runner := builtinFixture(t)
	_, err := runTool(t, r, "execute_validated_query", map[string]any{
		"sql_query": "DELETE FROM argo_profiles",
	})
	if !errors.Is(err, sqlgen.ErrSQLValidationFailed) {
		t.Errorf("err = %v, want ErrSQLValidationFailed", err)
	}
	if runner.lastSQL != "" {
		t.Errorf("rejected statement reached the database: %q", runner.lastSQL)
	}
}

func TestExecuteValidatedQueryNormalizes(t *testing.T) {
	t.Parallel()

	r, runner := builtinFixture(t)
	_, err := runTool(t, r, "execute_validated_query", map[string]any{
		"sql_query": "SELECT wmo_id FROM argo_floats",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasSuffix(runner.lastSQL, "LIMIT 100") {
		t.Errorf("executed sql = %q, want LIMIT appended", runner.lastSQL)
	}
}

func TestFetchProfilesForFloats(t *testing.T) {
	t.Parallel()

	r, runner := builtinFixture(t)
	_, err := runTool(t, r, "fetch_profiles_for_floats", map[string]any{
		"wmo_ids": []any{float64(2902746), float64(2902747)},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(runner.lastSQL, "wmo_id = ANY($1)") {
		t.Errorf("sql = %q", runner.lastSQL)
	}
	ids, ok := runner.lastArgs[0].([]int64)
	if !ok || len(ids) != 2 {
		t.Errorf("ids = %v", runner.lastArgs[0])
	}
}
