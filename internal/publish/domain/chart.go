package domain

// File names inside a chart directory.
const (
	ChartFile = "Chart.yaml"
	LockFile  = "Chart.lock"
)

// Chart is the subset of a Chart.yaml descriptor the publisher acts on.
type Chart struct {
	APIVersion   string       `yaml:"apiVersion" json:"apiVersion"`
	Name         string       `yaml:"name" json:"name"`
	Version      string       `yaml:"version" json:"version"`
	AppVersion   string       `yaml:"appVersion,omitempty" json:"appVersion,omitempty"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Type         string       `yaml:"type,omitempty" json:"type,omitempty"`
	Home         string       `yaml:"home,omitempty" json:"home,omitempty"`
	Sources      []string     `yaml:"sources,omitempty" json:"sources,omitempty"`
	Keywords     []string     `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Icon         string       `yaml:"icon,omitempty" json:"icon,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// Dependency is one entry of a chart's dependencies list.
type Dependency struct {
	Name       string `yaml:"name" json:"name"`
	Version    string `yaml:"version" json:"version"`
	Repository string `yaml:"repository,omitempty" json:"repository,omitempty"`
	Condition  string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Alias      string `yaml:"alias,omitempty" json:"alias,omitempty"`
}

// HasDependencies reports whether the chart declares any dependency.
func (c Chart) HasDependencies() bool {
	return len(c.Dependencies) > 0
}

// ArchiveName is the file name helm package produces for the chart.
func (c Chart) ArchiveName() string {
	return c.Name + "-" + c.Version + ".tgz"
}

// LockDigest is the part of a Chart.lock that identifies its resolved
// dependency set; it excludes the generated timestamp.
type LockDigest struct {
	Digest string `yaml:"digest"`
}

// Release is a source-control release for one chart version.
type Release struct {
	Tag    string
	Name   string
	Notes  string
	Target string // branch or commit the tag is created on
}
