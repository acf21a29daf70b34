package sqlgen

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAcceptsSelect(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	got, err := v.Validate(
		"SELECT wmo_id, temperature_celsius FROM argo_profiles WHERE latitude BETWEEN 8 AND 30 LIMIT 50")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.HasPrefix(got, "SELECT") {
		t.Errorf("normalized sql = %q", got)
	}
}

func TestValidateAppendsLimit(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	got, err := v.Validate("SELECT wmo_id FROM argo_floats")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.HasSuffix(got, "LIMIT 100") {
		t.Errorf("sql = %q, want LIMIT 100 appended", got)
	}
}

func TestValidateStripsTrailingSemicolon(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	got, err := v.Validate("SELECT wmo_id FROM argo_floats LIMIT 10;")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if strings.Contains(got, ";") {
		t.Errorf("sql = %q, semicolon not stripped", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"delete", "DELETE FROM argo_profiles WHERE wmo_id = 1"},
		{"insert", "INSERT INTO argo_floats VALUES (1)"},
		{"drop via select", "SELECT wmo_id FROM argo_floats; DROP TABLE argo_floats"},
		{"update", "UPDATE argo_floats SET institution = 'x'"},
		{"comment smuggling", "SELECT wmo_id FROM argo_floats -- LIMIT bypass"},
		{"unknown table", "SELECT id FROM users"},
		{"unknown column", "SELECT password FROM argo_floats"},
		{"unknown qualified column", "SELECT p.secret FROM argo_profiles p"},
		{"unknown alias", "SELECT x.wmo_id FROM argo_profiles p"},
		{"no table", "SELECT 1"},
	}
	v := NewValidator(nil, 100)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := v.Validate(tc.sql); !errors.Is(err, ErrSQLValidationFailed) {
				t.Errorf("Validate(%q) err = %v, want ErrSQLValidationFailed", tc.sql, err)
			}
		})
	}
}

func TestValidateAliases(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	sql := `SELECT p.wmo_id, f.institution, p.temperature_celsius
		FROM argo_profiles AS p
		JOIN argo_floats f ON p.wmo_id = f.wmo_id
		LIMIT 20`
	if _, err := v.Validate(sql); err != nil {
		t.Errorf("Validate with aliases: %v", err)
	}
}

func TestValidateOutputAlias(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	sql := `SELECT COUNT(wmo_id) AS profile_count FROM argo_profiles ORDER BY profile_count LIMIT 1`
	if _, err := v.Validate(sql); err != nil {
		t.Errorf("Validate with output alias: %v", err)
	}
}

func TestValidateStringLiteralsIgnored(t *testing.T) {
	t.Parallel()

	v := NewValidator(nil, 100)
	// The literal contains words that would fail identifier checks.
	sql := `SELECT wmo_id FROM argo_floats WHERE institution = 'DROP EVERYTHING inc' LIMIT 5`
	if _, err := v.Validate(sql); err != nil {
		t.Errorf("Validate with literal: %v", err)
	}
}

func TestValidateCustomWhitelist(t *testing.T) {
	t.Parallel()

	v := NewValidator(map[string][]string{"sensors": {"id", "reading"}}, 10)
	if _, err := v.Validate("SELECT id, reading FROM sensors"); err != nil {
		t.Errorf("custom whitelist accept: %v", err)
	}
	if _, err := v.Validate("SELECT wmo_id FROM argo_floats"); !errors.Is(err, ErrSQLValidationFailed) {
		t.Error("default tables must not leak into custom whitelist")
	}
}
