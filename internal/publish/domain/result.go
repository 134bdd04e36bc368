package domain

// Status is the outcome of processing one chart.
type Status int

const (
	StatusUpdated Status = iota // Something was written or published
	StatusSkipped               // Already current, nothing to do
	StatusFailed                // Processing failed for this chart
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

var statusNames = [...]string{
	StatusUpdated: "updated",
	StatusSkipped: "skipped",
	StatusFailed:  "failed",
}

// ChartResult is the tagged result of one per-chart task.
type ChartResult struct {
	Dir     string
	Name    string
	Version string
	Status  Status
	Files   []string // repository-relative paths written for this chart
	Detail  string   // human readable note (release tag, registry ref, ...)
	Diff    string   // unified diff of the rewritten file, if any
	Err     error
}

// OK reports whether the chart was handled without error.
func (r ChartResult) OK() bool {
	return r.Status != StatusFailed
}

// Updated builds an updated result.
func Updated(dir string, chart Chart, files ...string) ChartResult {
	return ChartResult{Dir: dir, Name: chart.Name, Version: chart.Version, Status: StatusUpdated, Files: files}
}

// Skipped builds a skipped result.
func Skipped(dir string, chart Chart, detail string) ChartResult {
	return ChartResult{Dir: dir, Name: chart.Name, Version: chart.Version, Status: StatusSkipped, Detail: detail}
}

// Failed builds a failed result. chart may be zero when the descriptor
// could not be read.
func Failed(dir string, chart Chart, err error) ChartResult {
	return ChartResult{
		Dir:     dir,
		Name:    chart.Name,
		Version: chart.Version,
		Status:  StatusFailed,
		Err:     &ChartError{Dir: dir, Err: err},
	}
}

// CountByStatus returns counts of results grouped by status.
func CountByStatus(results []ChartResult) (updated, skipped, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusUpdated:
			updated++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// ChangeSet accumulates the outcome of one batch: the files to persist and
// whether each chart succeeded.
type ChangeSet struct {
	Files    []string
	Outcomes []bool
}

// NewChangeSet collects files and outcomes from settled per-chart results,
// preserving input order.
func NewChangeSet(results []ChartResult) ChangeSet {
	cs := ChangeSet{Outcomes: make([]bool, 0, len(results))}
	for _, r := range results {
		cs.Outcomes = append(cs.Outcomes, r.OK())
		if r.OK() {
			cs.Files = append(cs.Files, r.Files...)
		}
	}
	return cs
}

// AllSucceeded is the logical AND of every outcome. An empty batch succeeds.
func (cs ChangeSet) AllSucceeded() bool {
	for _, ok := range cs.Outcomes {
		if !ok {
			return false
		}
	}
	return true
}

// CommitResult describes a commit made by a committer.
type CommitResult struct {
	SHA     string
	Updated int
}

// Report is the summary of one operation run, handed to reporters.
type Report struct {
	Operation string
	Results   []ChartResult
	Commit    *CommitResult
	Err       error
}
