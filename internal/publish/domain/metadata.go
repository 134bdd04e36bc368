package domain

// MetadataFile is the per-chart file holding every published version of the chart.
const MetadataFile = "metadata.yaml"

// VersionEntry is one published version of one chart. Version and URLs are
// the only fields the publisher interprets; everything else the packaging
// tool emits (appVersion, created, digest, ...) is carried in Extra and
// written back untouched.
type VersionEntry struct {
	Version string         `yaml:"version"`
	URLs    []string       `yaml:"urls"`
	Extra   map[string]any `yaml:",inline"`
}

// ChartMetadata is the on-disk aggregate stored in a chart directory's
// metadata.yaml, keyed by chart name.
type ChartMetadata struct {
	Entries map[string][]VersionEntry `yaml:"entries"`
}

// HasVersion reports whether the chart already has an entry for version.
func (m *ChartMetadata) HasVersion(chartName, version string) bool {
	if m == nil {
		return false
	}
	for _, e := range m.Entries[chartName] {
		if e.Version == version {
			return true
		}
	}
	return false
}

// EntriesFor returns the recorded entries for chartName, or nil when the
// metadata is absent or has no such key.
func (m *ChartMetadata) EntriesFor(chartName string) []VersionEntry {
	if m == nil {
		return nil
	}
	return m.Entries[chartName]
}

// IndexFragment is the single-chart index produced by packaging one chart.
// It holds exactly one chart key with exactly one entry.
type IndexFragment struct {
	APIVersion string                    `yaml:"apiVersion,omitempty"`
	Entries    map[string][]VersionEntry `yaml:"entries"`
}

// FileChange describes a file the publisher rewrote, with its previous and
// new contents. Before is nil when the file did not exist.
type FileChange struct {
	Path   string
	Before []byte
	After  []byte
}

// Created reports whether the file did not exist before the write.
func (c FileChange) Created() bool {
	return c.Before == nil
}
