package uuid

import (
	"regexp"
	"sort"
	"testing"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewV7_Format(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		s := NewV7().String()
		if !uuidRe.MatchString(s) {
			t.Fatalf("NewV7().String() = %q, not a valid v7 UUID", s)
		}
	}
}

func TestNewV7_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s := NewString()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate UUID generated: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestNewV7_TimestampOrdering(t *testing.T) {
	// Fixed, strictly increasing timestamps must produce lexically sorted UUIDs.
	orig := nowMillis
	defer func() { nowMillis = orig }()

	ts := int64(1_700_000_000_000)
	nowMillis = func() int64 { ts += 10; return ts }

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewString()
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("UUIDs not timestamp-ordered at index %d: %s vs %s", i, ids[i], sorted[i])
		}
	}
}
