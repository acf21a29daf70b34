// Package sqlgen turns natural-language questions into validated SELECT
// statements over the ARGO tables, via the LLM with a template fallback.
package sqlgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSQLValidationFailed means generated SQL was rejected and corrective
// retries did not produce a safe statement.
var ErrSQLValidationFailed = errors.New("sqlgen: sql validation failed")

// forbiddenRe rejects mutating statements anywhere in the text. Generated
// SQL is read-only by contract; anything that mutates schema or data is an
// immediate failure, not a candidate for correction.
var forbiddenRe = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|GRANT|REVOKE|CREATE|EXECUTE|COPY)\b`)

// sqlKeywords are skipped during identifier checking. Includes the handful
// of PostgreSQL functions the generator is known to emit.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"not": true, "in": true, "between": true, "like": true, "ilike": true,
	"is": true, "null": true, "as": true, "on": true, "join": true,
	"inner": true, "left": true, "right": true, "outer": true, "full": true,
	"group": true, "by": true, "order": true, "having": true, "limit": true,
	"offset": true, "asc": true, "desc": true, "distinct": true, "with": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"union": true, "all": true, "exists": true, "any": true, "interval": true,
	"true": true, "false": true, "cast": true, "extract": true, "epoch": true,
	"year": true, "month": true, "day": true, "now": true, "nulls": true,
	"first": true, "last": true,
}

var (
	limitRe       = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	tableRefRe    = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-z_][a-z0-9_]*)(?:\s+(?:as\s+)?([a-z_][a-z0-9_]*))?`)
	identifierRe  = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)(\.[a-z_][a-z0-9_]*)?\b`)
	stringLitRe   = regexp.MustCompile(`'[^']*'`)
	funcCallRe    = regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_]*)\s*\(`)
	outputAliasRe = regexp.MustCompile(`(?i)\bas\s+([a-z_][a-z0-9_]*)`)
)

// Validator checks generated SQL against a table and column whitelist and
// normalizes the accepted statement.
type Validator struct {
	// tables maps allowed table name to allowed column names.
	tables   map[string]map[string]bool
	rowLimit int
}

// DefaultWhitelist covers the two ARGO tables.
func DefaultWhitelist() map[string][]string {
	return map[string][]string{
		"argo_floats": {
			"wmo_id", "deployment_date", "float_type", "institution", "float_category",
		},
		"argo_profiles": {
			"profile_id", "wmo_id", "cycle_number", "profile_date",
			"latitude", "longitude", "float_category", "data_mode",
			"pressure_dbar", "temperature_celsius", "salinity_psu",
			"doxy_micromol_per_kg", "chla_microgram_per_l", "nitrate_micromol_per_kg",
			"pressure_qc", "temperature_qc", "salinity_qc",
			"doxy_qc", "chla_qc", "nitrate_qc",
		},
	}
}

// NewValidator builds a Validator. An empty whitelist falls back to the
// default ARGO tables; rowLimit <= 0 falls back to 100.
func NewValidator(whitelist map[string][]string, rowLimit int) *Validator {
	if len(whitelist) == 0 {
		whitelist = DefaultWhitelist()
	}
	if rowLimit <= 0 {
		rowLimit = 100
	}
	tables := make(map[string]map[string]bool, len(whitelist))
	for table, cols := range whitelist {
		set := make(map[string]bool, len(cols))
		for _, c := range cols {
			set[strings.ToLower(c)] = true
		}
		tables[strings.ToLower(table)] = set
	}
	return &Validator{tables: tables, rowLimit: rowLimit}
}

// Validate checks one statement and returns the normalized form: trimmed,
// single statement, with a LIMIT appended when missing. The returned error
// wraps ErrSQLValidationFailed and names the specific violation so the
// generator can feed it back to the model.
func (v *Validator) Validate(sql string) (string, error) {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSuffix(stmt, ";")
	if stmt == "" {
		return "", fmt.Errorf("%w: empty statement", ErrSQLValidationFailed)
	}
	if strings.Contains(stmt, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrSQLValidationFailed)
	}
	if strings.Contains(stmt, "--") || strings.Contains(stmt, "/*") {
		return "", fmt.Errorf("%w: comments not allowed", ErrSQLValidationFailed)
	}

	upper := strings.ToUpper(stmt)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", fmt.Errorf("%w: only SELECT statements allowed", ErrSQLValidationFailed)
	}
	// Scan for mutating keywords outside string literals only.
	scrubbedUpper := strings.ToUpper(stringLitRe.ReplaceAllString(stmt, "''"))
	if m := forbiddenRe.FindString(scrubbedUpper); m != "" {
		return "", fmt.Errorf("%w: forbidden keyword %s", ErrSQLValidationFailed, m)
	}

	aliases, err := v.checkTables(stmt)
	if err != nil {
		return "", err
	}
	if err := v.checkColumns(stmt, aliases); err != nil {
		return "", err
	}

	if !limitRe.MatchString(stmt) {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, v.rowLimit)
	}
	return stmt, nil
}

// checkTables verifies every FROM/JOIN target is whitelisted and returns
// the alias-to-table mapping (a table maps to itself).
func (v *Validator) checkTables(stmt string) (map[string]string, error) {
	matches := tableRefRe.FindAllStringSubmatch(stringLitRe.ReplaceAllString(stmt, "''"), -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no table reference", ErrSQLValidationFailed)
	}
	aliases := make(map[string]string)
	for _, m := range matches {
		table := strings.ToLower(m[1])
		if _, ok := v.tables[table]; !ok {
			return nil, fmt.Errorf("%w: table %s not allowed", ErrSQLValidationFailed, table)
		}
		aliases[table] = table
		if alias := strings.ToLower(m[2]); alias != "" && !sqlKeywords[alias] {
			aliases[alias] = table
		}
	}
	return aliases, nil
}

// checkColumns verifies every column reference resolves to a whitelisted
// column. Qualified references are checked against their alias's table,
// bare identifiers against the union of referenced tables.
func (v *Validator) checkColumns(stmt string, aliases map[string]string) error {
	// String literals carry arbitrary text; blank them before scanning.
	scrubbed := stringLitRe.ReplaceAllString(stmt, "''")

	// Function names look like identifiers; blank the name, keep the args.
	scrubbed = funcCallRe.ReplaceAllString(scrubbed, "(")

	allowed := make(map[string]bool)
	for _, table := range aliases {
		for col := range v.tables[table] {
			allowed[col] = true
		}
	}
	// Output aliases (SELECT COUNT(*) AS n) are legal references.
	for _, m := range outputAliasRe.FindAllStringSubmatch(scrubbed, -1) {
		allowed[strings.ToLower(m[1])] = true
	}

	for _, m := range identifierRe.FindAllStringSubmatch(scrubbed, -1) {
		name := strings.ToLower(m[1])
		if m[2] != "" {
			// qualified: alias.column
			col := strings.ToLower(strings.TrimPrefix(m[2], "."))
			table, ok := aliases[name]
			if !ok {
				return fmt.Errorf("%w: unknown table alias %s", ErrSQLValidationFailed, name)
			}
			if !v.tables[table][col] {
				return fmt.Errorf("%w: column %s.%s not allowed", ErrSQLValidationFailed, table, col)
			}
			continue
		}
		if sqlKeywords[name] || aliases[name] != "" {
			continue
		}
		if !allowed[name] {
			return fmt.Errorf("%w: column %s not allowed", ErrSQLValidationFailed, name)
		}
	}
	return nil
}
