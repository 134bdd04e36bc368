package domain

import (
	"reflect"
	"slices"
)

// RepositoryIndex is a Helm repository index (index.yaml) covering every
// chart in the repository.
type RepositoryIndex struct {
	APIVersion string                    `yaml:"apiVersion"`
	Entries    map[string][]VersionEntry `yaml:"entries"`
	Generated  string                    `yaml:"generated,omitempty"`
}

// BuildIndex aggregates per-chart metadata into a repository index. Entries
// for the same chart name found in several metadata files are merged and
// ordered newest first; duplicate versions keep the first file's entry.
func BuildIndex(metadata []ChartMetadata) RepositoryIndex {
	idx := RepositoryIndex{APIVersion: "v1", Entries: make(map[string][]VersionEntry)}
	for _, m := range metadata {
		for name, entries := range m.Entries {
			idx.Entries[name] = MergeEntries(idx.Entries[name], entries, 0)
		}
	}
	return idx
}

// ChartNames returns the index's chart names in sorted order.
func (i RepositoryIndex) ChartNames() []string {
	names := make([]string, 0, len(i.Entries))
	for n := range i.Entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// SameEntries reports whether two indexes list the same charts and versions
// with the same data. The generated timestamp is not compared.
func SameEntries(a, b RepositoryIndex) bool {
	return reflect.DeepEqual(normalize(a.Entries), normalize(b.Entries))
}

func normalize(entries map[string][]VersionEntry) map[string][]VersionEntry {
	out := make(map[string][]VersionEntry, len(entries))
	for name, list := range entries {
		if len(list) == 0 {
			continue
		}
		norm := make([]VersionEntry, len(list))
		for i, e := range list {
			if len(e.URLs) == 0 {
				e.URLs = nil
			}
			if len(e.Extra) == 0 {
				e.Extra = nil
			}
			norm[i] = e
		}
		out[name] = norm
	}
	return out
}
