package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// IndexService implements ports.IndexUseCase by aggregating every chart's
// metadata file into the repository index.
type IndexService struct {
	charts    ports.ChartReaderPort
	metadata  ports.MetadataStorePort
	index     ports.IndexStorePort
	gate      *CommitGate
	differ    ports.DiffPort
	chartsDir string
	indexPath string
	now       func() time.Time
	batch     *batchRunner
	logger    *slog.Logger
}

// NewIndexService creates an IndexService. differ and reporter may be nil.
func NewIndexService(
	charts ports.ChartReaderPort,
	metadata ports.MetadataStorePort,
	index ports.IndexStorePort,
	gate *CommitGate,
	differ ports.DiffPort,
	reporter ports.ReportingPort,
	chartsDir, indexPath string,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *IndexService {
	return &IndexService{
		charts:    charts,
		metadata:  metadata,
		index:     index,
		gate:      gate,
		differ:    differ,
		chartsDir: chartsDir,
		indexPath: indexPath,
		now:       time.Now,
		batch:     newBatchRunner(KindIndex, 0, reporter, logger, meter, tracer),
		logger:    logger,
	}
}

// UpdateIndex rebuilds the index from the metadata of every chart in the
// repository. The index is rewritten only when its entries change. When any
// chart's metadata cannot be read the index is left untouched, since
// rebuilding it would drop that chart.
func (s *IndexService) UpdateIndex(ctx context.Context) (bool, error) {
	dirs, err := s.charts.ListCharts(ctx, s.chartsDir)
	if err != nil {
		return false, fmt.Errorf("listing charts: %w", err)
	}

	existing, err := s.index.ReadIndex(ctx, s.indexPath)
	if err != nil {
		return false, fmt.Errorf("reading index: %w", err)
	}

	results := make([]domain.ChartResult, len(dirs))
	metas := make([]*domain.ChartMetadata, len(dirs))
	for i, dir := range dirs {
		meta, err := s.metadata.ReadMetadata(ctx, dir)
		switch {
		case err != nil:
			results[i] = domain.Failed(dir, domain.Chart{}, fmt.Errorf("reading metadata: %w", err))
		case meta == nil:
			results[i] = domain.Skipped(dir, domain.Chart{}, "no metadata recorded")
		default:
			metas[i] = meta
			results[i] = domain.ChartResult{Dir: dir, Status: domain.StatusSkipped, Detail: "index entries current"}
		}
	}

	if !domain.NewChangeSet(results).AllSucceeded() {
		s.batch.record(ctx, results)
		s.logger.Error("index not rebuilt: metadata could not be read for every chart")
		s.batch.report(ctx, results, nil, nil)
		return false, nil
	}

	var collected []domain.ChartMetadata
	for _, m := range metas {
		if m != nil {
			collected = append(collected, *m)
		}
	}
	idx := domain.BuildIndex(collected)
	markIndexChanges(results, metas, existing, idx)
	s.batch.record(ctx, results)

	if existing != nil && domain.SameEntries(*existing, idx) {
		s.logger.Info("index up to date", "path", s.indexPath, "charts", len(idx.Entries))
		s.batch.report(ctx, results, nil, nil)
		return true, nil
	}

	idx.Generated = s.now().UTC().Format(time.RFC3339Nano)
	change, err := s.index.WriteIndex(ctx, s.indexPath, idx)
	if err != nil {
		return false, fmt.Errorf("writing index: %w", err)
	}
	if s.differ != nil {
		s.logger.Debug("index diff", "diff",
			s.differ.ComputeDiff("a/"+change.Path, "b/"+change.Path, change.Before, change.After))
	}

	commit, err := s.gate.CommitIfChanged(ctx, []string{change.Path}, KindIndex)
	s.batch.report(ctx, results, commit, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// markIndexChanges flags the charts whose entries differ between the
// existing index and the rebuilt one.
func markIndexChanges(results []domain.ChartResult, metas []*domain.ChartMetadata, existing *domain.RepositoryIndex, idx domain.RepositoryIndex) {
	for i, m := range metas {
		if m == nil {
			continue
		}
		for name := range m.Entries {
			before := domain.RepositoryIndex{}
			if existing != nil {
				before.Entries = map[string][]domain.VersionEntry{name: existing.Entries[name]}
			}
			after := domain.RepositoryIndex{Entries: map[string][]domain.VersionEntry{name: idx.Entries[name]}}
			results[i].Name = name
			if !domain.SameEntries(before, after) {
				results[i].Status = domain.StatusUpdated
				results[i].Detail = "index entries changed"
				if latest := idx.Entries[name]; len(latest) > 0 {
					results[i].Version = latest[0].Version
				}
			}
		}
	}
}
