package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// MetadataSettings configures MetadataService.
type MetadataSettings struct {
	Retention       int              // newest versions kept per chart, 0 = all
	BaseDownloadURL string           // e.g. https://github.com/acme/charts/releases/download
	ReleaseTitle    *domain.Template // renders the release tag from the chart
	ScratchRoot     string           // parent of per-chart scratch dirs, "" = system temp
	Concurrency     int              // max charts in flight, 0 = unbounded
}

// MetadataService implements ports.MetadataUseCase: for each chart it
// records the current version in metadata.yaml unless it is already there,
// then commits every rewritten file at once.
type MetadataService struct {
	charts   ports.ChartReaderPort
	store    ports.MetadataStorePort
	packager ports.PackagerPort
	gate     *CommitGate
	differ   ports.DiffPort
	settings MetadataSettings
	batch    *batchRunner
	logger   *slog.Logger
}

// NewMetadataService creates a MetadataService. differ and reporter may be nil.
func NewMetadataService(
	charts ports.ChartReaderPort,
	store ports.MetadataStorePort,
	packager ports.PackagerPort,
	gate *CommitGate,
	differ ports.DiffPort,
	reporter ports.ReportingPort,
	settings MetadataSettings,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *MetadataService {
	return &MetadataService{
		charts:   charts,
		store:    store,
		packager: packager,
		gate:     gate,
		differ:   differ,
		settings: settings,
		batch:    newBatchRunner(KindMetadata, settings.Concurrency, reporter, logger, meter, tracer),
		logger:   logger,
	}
}

// UpdateMetadata processes every chart directory concurrently, then commits
// the collected metadata files in one commit. The boolean is true when every
// chart was updated or skipped; the error is non-nil only when the commit
// failed.
func (s *MetadataService) UpdateMetadata(ctx context.Context, chartDirs []string) (bool, error) {
	if len(chartDirs) == 0 {
		s.logger.Info("no charts to update metadata for")
		return true, nil
	}

	s.logger.Info("updating chart metadata", "charts", len(chartDirs), "retention", s.settings.Retention)

	results := s.batch.run(ctx, chartDirs, s.updateChart)
	changes := domain.NewChangeSet(results)

	commit, err := s.gate.CommitIfChanged(ctx, changes.Files, KindMetadata)
	s.batch.report(ctx, results, commit, err)
	if err != nil {
		return false, err
	}
	return changes.AllSucceeded(), nil
}

// updateChart runs the read, skip-check, package, merge, write sequence for
// one chart directory.
func (s *MetadataService) updateChart(ctx context.Context, dir string) domain.ChartResult {
	chart, err := s.charts.ReadChart(ctx, dir)
	if err != nil {
		return domain.Failed(dir, domain.Chart{}, fmt.Errorf("reading chart: %w", err))
	}

	existing, err := s.store.ReadMetadata(ctx, dir)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("reading metadata: %w", err))
	}

	if existing.HasVersion(chart.Name, chart.Version) {
		return domain.Skipped(dir, chart, "version already recorded")
	}

	tag, err := s.settings.ReleaseTitle.Render(domain.NewReleaseData(chart))
	if err != nil {
		return domain.Failed(dir, chart, err)
	}

	fragment, err := s.generate(ctx, dir, tag)
	if err != nil {
		return domain.Failed(dir, chart, err)
	}

	fresh := fragment.Entries[chart.Name]
	if len(fresh) == 0 {
		return domain.Failed(dir, chart, errors.New("index fragment has no entry for chart "+chart.Name))
	}

	meta := domain.ChartMetadata{Entries: make(map[string][]domain.VersionEntry)}
	if existing != nil {
		for name, entries := range existing.Entries {
			meta.Entries[name] = entries
		}
	}
	meta.Entries[chart.Name] = domain.MergeEntries(fresh, existing.EntriesFor(chart.Name), s.settings.Retention)

	change, err := s.store.WriteMetadata(ctx, dir, meta)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("writing metadata: %w", err))
	}

	result := domain.Updated(dir, chart, change.Path)
	result.Detail = tag
	if s.differ != nil {
		result.Diff = s.differ.ComputeDiff("a/"+change.Path, "b/"+change.Path, change.Before, change.After)
	}
	return result
}

// generate packages the chart into a scratch directory that is removed
// before returning, whatever the outcome.
func (s *MetadataService) generate(ctx context.Context, dir, tag string) (domain.IndexFragment, error) {
	scratch, cleanup, err := scratchDir(s.settings.ScratchRoot, "chart-publisher-metadata-*", s.logger)
	if err != nil {
		return domain.IndexFragment{}, err
	}
	defer cleanup()

	downloadURL := domain.ReleaseDownloadURL(s.settings.BaseDownloadURL, tag)
	fragment, err := s.packager.PackageAndIndex(ctx, dir, scratch, downloadURL)
	if err != nil {
		return domain.IndexFragment{}, fmt.Errorf("packaging chart: %w", err)
	}
	return fragment, nil
}
