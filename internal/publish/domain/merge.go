package domain

import "slices"

// MergeEntries combines freshly generated entries with the entries already
// recorded for a chart.
//
// The result is ordered newest first, holds each version string once and,
// when retention > 0, keeps only the newest retention entries. Fresh entries
// are placed ahead of existing ones before the stable sort, so when both
// lists carry the same version the fresh entry (and its regenerated URLs)
// survives.
//
// Duplicates are matched on the exact version string. Spellings that compare
// equal as semver, such as "v1.0.0" and "1.0.0", are kept as separate entries
// and end up adjacent in the result.
func MergeEntries(fresh, existing []VersionEntry, retention int) []VersionEntry {
	merged := make([]VersionEntry, 0, len(fresh)+len(existing))
	merged = append(merged, fresh...)
	merged = append(merged, existing...)

	SortEntries(merged)

	seen := make(map[string]struct{}, len(merged))
	result := merged[:0]
	for _, e := range merged {
		if _, dup := seen[e.Version]; dup {
			continue
		}
		seen[e.Version] = struct{}{}
		result = append(result, e)
	}

	if retention > 0 && len(result) > retention {
		result = result[:retention]
	}
	return result
}

// SortEntries orders entries newest first without dropping anything.
func SortEntries(entries []VersionEntry) {
	slices.SortStableFunc(entries, func(a, b VersionEntry) int {
		return CompareVersions(b.Version, a.Version)
	})
}
