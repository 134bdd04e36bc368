package ports

import (
	"context"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// MetadataUseCase regenerates per-chart metadata for a batch of chart directories.
type MetadataUseCase interface {
	UpdateMetadata(ctx context.Context, chartDirs []string) (bool, error)
}

// PublishUseCase packages charts and publishes them as releases.
type PublishUseCase interface {
	Publish(ctx context.Context, chartDirs []string) (bool, error)
}

// IndexUseCase regenerates the repository index from every chart's metadata.
type IndexUseCase interface {
	UpdateIndex(ctx context.Context) (bool, error)
}

// LockUseCase refreshes dependency lockfiles.
type LockUseCase interface {
	UpdateLocks(ctx context.Context, chartDirs []string) (bool, error)
}

// ApplicationUseCase keeps application manifests pointed at the current chart versions.
type ApplicationUseCase interface {
	UpdateApplications(ctx context.Context, chartDirs []string) (bool, error)
}

// DiscoveryUseCase decides which chart directories a run should act on.
type DiscoveryUseCase interface {
	Discover(ctx context.Context, trigger domain.Trigger) ([]string, error)
}
