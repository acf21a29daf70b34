// Rules file loading. The routing signal table, named geographic regions, and
// the SQL whitelist are data, not code: operators tune them in a YAML file
// without rebuilding. Built-in defaults live in the owning domain packages;
// anything present in the file overrides the corresponding default wholesale.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SignalRule is one row of the query-routing signal table.
type SignalRule struct {
	Pattern  string  `yaml:"pattern"`  // lowercase substring matched against the query
	Weight   float64 `yaml:"weight"`   // cumulative score contribution
	Pipeline string  `yaml:"pipeline"` // "sql" or "tool"
	Category string  `yaml:"category"` // retrieval category hint (optional)
}

// Region is a named lat/lon bounding box.
type Region struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

// Rules is the operator-tunable rule set.
type Rules struct {
	Signals []SignalRule      `yaml:"signals"`
	Regions map[string]Region `yaml:"regions"`
	// Tables maps whitelisted table names to their whitelisted columns.
	Tables map[string][]string `yaml:"tables"`
}

// LoadRules reads and parses a YAML rules file. An empty path returns an
// empty Rules value (callers fall back to built-in defaults per section).
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return Rules{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("config: read rules %q: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("config: parse rules %q: %w", path, err)
	}

	for i, s := range rules.Signals {
		if s.Pattern == "" || (s.Pipeline != "sql" && s.Pipeline != "tool") {
			return Rules{}, fmt.Errorf("config: rules %q: signal %d invalid (pattern=%q pipeline=%q)", path, i, s.Pattern, s.Pipeline)
		}
	}

	return rules, nil
}
