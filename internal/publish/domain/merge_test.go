package domain

import (
	"fmt"
	"math/rand"
	"testing"
)

func entry(version string, urls ...string) VersionEntry {
	return VersionEntry{Version: version, URLs: urls}
}

func versions(entries []VersionEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Version
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeEntries(t *testing.T) {
	tests := []struct {
		name      string
		fresh     []VersionEntry
		existing  []VersionEntry
		retention int
		want      []string
	}{
		{
			name:  "no existing entries",
			fresh: []VersionEntry{entry("1.2.0", "https://x/foo-1.2.0/foo-1.2.0.tgz")},
			want:  []string{"1.2.0"},
		},
		{
			name:     "fresh version prepended to history",
			fresh:    []VersionEntry{entry("1.3.0")},
			existing: []VersionEntry{entry("1.2.0"), entry("1.1.0")},
			want:     []string{"1.3.0", "1.2.0", "1.1.0"},
		},
		{
			name:     "unsorted history gets sorted",
			fresh:    []VersionEntry{entry("1.0.1")},
			existing: []VersionEntry{entry("0.9.0"), entry("1.1.0"), entry("1.0.0")},
			want:     []string{"1.1.0", "1.0.1", "1.0.0", "0.9.0"},
		},
		{
			name:     "semantic ordering beats string ordering",
			fresh:    []VersionEntry{entry("2.10.0")},
			existing: []VersionEntry{entry("2.9.0"), entry("2.1.0")},
			want:     []string{"2.10.0", "2.9.0", "2.1.0"},
		},
		{
			name:     "prerelease sorts below release",
			fresh:    []VersionEntry{entry("1.0.0-rc.1")},
			existing: []VersionEntry{entry("1.0.0"), entry("0.9.0")},
			want:     []string{"1.0.0", "1.0.0-rc.1", "0.9.0"},
		},
		{
			name:     "duplicate version collapses",
			fresh:    []VersionEntry{entry("1.0.0")},
			existing: []VersionEntry{entry("1.0.0"), entry("0.1.0")},
			want:     []string{"1.0.0", "0.1.0"},
		},
		{
			name:      "retention keeps newest",
			fresh:     []VersionEntry{entry("1.4.0")},
			existing:  []VersionEntry{entry("1.3.0"), entry("1.2.0"), entry("1.1.0")},
			retention: 2,
			want:      []string{"1.4.0", "1.3.0"},
		},
		{
			name:      "retention larger than list",
			fresh:     []VersionEntry{entry("1.4.0")},
			existing:  []VersionEntry{entry("1.3.0")},
			retention: 10,
			want:      []string{"1.4.0", "1.3.0"},
		},
		{
			name:      "retention applied after dedup",
			fresh:     []VersionEntry{entry("2.0.0")},
			existing:  []VersionEntry{entry("2.0.0"), entry("1.0.0"), entry("0.5.0")},
			retention: 2,
			want:      []string{"2.0.0", "1.0.0"},
		},
		{
			name:     "non-semver versions sort below semver",
			fresh:    []VersionEntry{entry("1.0.0")},
			existing: []VersionEntry{entry("latest"), entry("0.1.0")},
			want:     []string{"1.0.0", "0.1.0", "latest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := versions(MergeEntries(tt.fresh, tt.existing, tt.retention))
			if !equalStrings(got, tt.want) {
				t.Errorf("MergeEntries() versions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeEntries_EquivalentSpellingsKept(t *testing.T) {
	fresh := []VersionEntry{entry("v1.0.0", "v")}
	existing := []VersionEntry{entry("1.0.0", "plain"), entry("0.9.0")}

	got := MergeEntries(fresh, existing, 0)

	want := []string{"v1.0.0", "1.0.0", "0.9.0"}
	if !equalStrings(versions(got), want) {
		t.Fatalf("MergeEntries() versions = %v, want %v", versions(got), want)
	}
	if got[0].URLs[0] != "v" || got[1].URLs[0] != "plain" {
		t.Errorf("MergeEntries() = %+v, want each spelling to keep its own urls", got)
	}
}

func TestMergeEntries_FreshURLWins(t *testing.T) {
	existing := []VersionEntry{entry("1.0.0", "old")}
	fresh := []VersionEntry{entry("1.0.0", "new")}

	got := MergeEntries(fresh, existing, 0)

	if len(got) != 1 {
		t.Fatalf("MergeEntries() returned %d entries, want 1", len(got))
	}
	if got[0].Version != "1.0.0" || len(got[0].URLs) != 1 || got[0].URLs[0] != "new" {
		t.Errorf("MergeEntries() = %+v, want version 1.0.0 with urls [new]", got[0])
	}
}

func TestMergeEntries_Idempotent(t *testing.T) {
	existing := []VersionEntry{
		entry("1.1.0", "https://x/1.1.0.tgz"),
		entry("1.0.0", "https://x/1.0.0.tgz"),
	}
	fresh := []VersionEntry{entry("1.1.0", "https://x/1.1.0.tgz")}

	once := MergeEntries(fresh, existing, 0)
	twice := MergeEntries(fresh, once, 0)

	if len(once) != len(existing) {
		t.Errorf("first merge grew list to %d, want %d", len(once), len(existing))
	}
	if !equalStrings(versions(once), versions(twice)) {
		t.Errorf("second merge changed result: %v -> %v", versions(once), versions(twice))
	}
}

func TestMergeEntries_ExtraFieldsCarried(t *testing.T) {
	fresh := []VersionEntry{{
		Version: "1.0.0",
		URLs:    []string{"u"},
		Extra:   map[string]any{"appVersion": "4.2", "digest": "abc"},
	}}

	got := MergeEntries(fresh, nil, 0)

	if got[0].Extra["appVersion"] != "4.2" || got[0].Extra["digest"] != "abc" {
		t.Errorf("extra fields lost: %+v", got[0].Extra)
	}
}

func TestMergeEntries_DescendingOrderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		var existing []VersionEntry
		for i := 0; i < 30; i++ {
			existing = append(existing, entry(fmt.Sprintf("%d.%d.%d", rng.Intn(3), rng.Intn(12), rng.Intn(12))))
		}
		fresh := []VersionEntry{entry(fmt.Sprintf("%d.%d.%d", rng.Intn(3), rng.Intn(12), rng.Intn(12)))}

		got := MergeEntries(fresh, existing, 0)

		seen := map[string]bool{}
		for i, e := range got {
			if seen[e.Version] {
				t.Fatalf("round %d: duplicate version %s", round, e.Version)
			}
			seen[e.Version] = true
			if i > 0 && CompareVersions(got[i-1].Version, e.Version) < 0 {
				t.Fatalf("round %d: %s listed before newer %s", round, got[i-1].Version, e.Version)
			}
		}
	}
}

func TestMergeEntries_RetentionBound(t *testing.T) {
	var existing []VersionEntry
	for i := 0; i < 9; i++ {
		existing = append(existing, entry(fmt.Sprintf("1.%d.0", i)))
	}
	fresh := []VersionEntry{entry("1.9.0")}

	got := MergeEntries(fresh, existing, 3)

	want := []string{"1.9.0", "1.8.0", "1.7.0"}
	if !equalStrings(versions(got), want) {
		t.Errorf("MergeEntries() = %v, want %v", versions(got), want)
	}
}

func TestMergeEntries_RetentionDisabled(t *testing.T) {
	var existing []VersionEntry
	for i := 0; i < 49; i++ {
		existing = append(existing, entry(fmt.Sprintf("0.%d.0", i)))
	}
	fresh := []VersionEntry{entry("1.0.0")}

	got := MergeEntries(fresh, existing, 0)

	if len(got) != 50 {
		t.Errorf("MergeEntries() returned %d entries, want 50", len(got))
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"2.10.0", "2.9.0", 1},
		{"2.9.0", "2.10.0", -1},
		{"1.0.0", "1.0.0-alpha", 1},
		{"v1.2.3", "1.2.3", 0},
		{"abc", "abd", -1},
		{"1.0.0", "nightly", 1},
		{"nightly", "1.0.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
