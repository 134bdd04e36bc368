package ports

import (
	"context"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// ChartReaderPort reads chart descriptors and enumerates chart directories.
type ChartReaderPort interface {
	ReadChart(ctx context.Context, chartDir string) (domain.Chart, error)
	ListCharts(ctx context.Context, chartsDir string) ([]string, error)
}

// MetadataStorePort reads and writes a chart directory's metadata file.
// ReadMetadata returns nil, nil when the file does not exist.
type MetadataStorePort interface {
	ReadMetadata(ctx context.Context, chartDir string) (*domain.ChartMetadata, error)
	WriteMetadata(ctx context.Context, chartDir string, meta domain.ChartMetadata) (domain.FileChange, error)
}

// IndexStorePort reads and writes the repository index. ReadIndex returns
// nil, nil when the file does not exist.
type IndexStorePort interface {
	ReadIndex(ctx context.Context, path string) (*domain.RepositoryIndex, error)
	WriteIndex(ctx context.Context, path string, idx domain.RepositoryIndex) (domain.FileChange, error)
}

// LockStorePort gives access to a chart's Chart.lock. ReadLock returns nil
// content when the lock does not exist.
type LockStorePort interface {
	ReadLock(ctx context.Context, chartDir string) ([]byte, *domain.LockDigest, error)
	RestoreLock(ctx context.Context, chartDir string, content []byte) error
}

// PackagerPort packages charts with the chart tooling.
type PackagerPort interface {
	// PackageAndIndex packages chartDir into scratchDir and generates a
	// single-chart index fragment whose URLs point below downloadURL.
	PackageAndIndex(ctx context.Context, chartDir, scratchDir, downloadURL string) (domain.IndexFragment, error)
	// Package packages chartDir into destDir and returns the archive path.
	Package(ctx context.Context, chartDir, destDir string) (string, error)
}

// LinterPort validates a chart.
type LinterPort interface {
	Lint(ctx context.Context, chartDir string) error
}

// DependencyPort resolves a chart's dependencies, rewriting Chart.lock.
type DependencyPort interface {
	UpdateDependencies(ctx context.Context, chartDir string) error
}

// CommitterPort persists a set of repository files as one commit on branch.
type CommitterPort interface {
	Commit(ctx context.Context, branch string, files []string, message string) (domain.CommitResult, error)
}

// ReleaserPort publishes chart archives as source-control releases.
type ReleaserPort interface {
	ReleaseExists(ctx context.Context, tag string) (bool, error)
	CreateRelease(ctx context.Context, release domain.Release, assetPath string) error
}

// RegistryPort pushes chart archives to an OCI registry.
type RegistryPort interface {
	Exists(ctx context.Context, chart domain.Chart) (bool, error)
	Push(ctx context.Context, chart domain.Chart, archivePath string) (string, error)
}

// ChangedFilesPort lists files changed between two commits.
type ChangedFilesPort interface {
	ChangedFiles(ctx context.Context, base, head string) ([]string, error)
}

// ApplicationPort rewrites the application manifest kept in a chart directory.
// It returns changed == false when the manifest is absent or already current.
type ApplicationPort interface {
	SyncApplication(ctx context.Context, chartDir string, chart domain.Chart) (change domain.FileChange, changed bool, err error)
}

// DiffPort computes a textual diff between two versions of a file.
type DiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}

// ReportingPort publishes the outcome of an operation.
type ReportingPort interface {
	Report(ctx context.Context, report domain.Report) error
}
