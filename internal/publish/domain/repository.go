package domain

import (
	"path"
	"slices"
	"strings"
)

// ChartDirsFromFiles maps changed file paths to the chart directories they
// belong to, following the {chartsDir}/{name}/... layout. The result is
// de-duplicated and sorted.
func ChartDirsFromFiles(files []string, chartsDir string) []string {
	prefix := strings.TrimSuffix(chartsDir, "/") + "/"
	seen := make(map[string]struct{})
	var dirs []string
	for _, f := range files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := f[len(prefix):]
		name, _, found := strings.Cut(rest, "/")
		// A file directly under chartsDir is not part of any chart.
		if !found || name == "" {
			continue
		}
		dir := prefix + name
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// MetadataPath is the repository-relative metadata file for a chart directory.
func MetadataPath(chartDir string) string {
	return path.Join(chartDir, MetadataFile)
}

// LockPath is the repository-relative Chart.lock for a chart directory.
func LockPath(chartDir string) string {
	return path.Join(chartDir, LockFile)
}

// ReleaseDownloadURL is the location release assets for tag are served
// from, given the repository's base download URL.
func ReleaseDownloadURL(baseURL, tag string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + tag
}

// Trigger describes what started the run.
type Trigger struct {
	Event  string // GitHub event name (push, workflow_dispatch, ...)
	Ref    string
	Before string
	After  string
}

const zeroSHA = "0000000000000000000000000000000000000000"

// NeedsInventory reports whether the run cannot be narrowed to the charts
// changed between two commits and must consider every chart instead.
func (t Trigger) NeedsInventory() bool {
	return t.Event != "push" || t.Before == "" || t.After == "" || t.Before == zeroSHA
}
