package sqlite

import "testing"

func TestMigrateUp_AppliesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	v, err := MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v < 1 {
		t.Errorf("MigrationVersion = %d, want >= 1", v)
	}

	// Second run is a no-op.
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM session_turn`).Scan(&count); err != nil {
		t.Fatalf("session_turn table missing after migration: %v", err)
	}
}

func TestVersionFromFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want int
	}{
		{"001_session_turns.up.sql", 1},
		{"042_later.up.sql", 42},
		{"noprefix.up.sql", 0},
	}
	for _, tc := range cases {
		if got := versionFromFilename(tc.name); got != tc.want {
			t.Errorf("versionFromFilename(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}
