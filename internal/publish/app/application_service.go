package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// ApplicationService implements ports.ApplicationUseCase: it points the
// Application manifest kept next to each chart at the chart's version.
type ApplicationService struct {
	charts ports.ChartReaderPort
	apps   ports.ApplicationPort
	gate   *CommitGate
	differ ports.DiffPort
	batch  *batchRunner
	logger *slog.Logger
}

// NewApplicationService creates an ApplicationService. differ and reporter
// may be nil.
func NewApplicationService(
	charts ports.ChartReaderPort,
	apps ports.ApplicationPort,
	gate *CommitGate,
	differ ports.DiffPort,
	reporter ports.ReportingPort,
	concurrency int,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *ApplicationService {
	return &ApplicationService{
		charts: charts,
		apps:   apps,
		gate:   gate,
		differ: differ,
		batch:  newBatchRunner(KindApplication, concurrency, reporter, logger, meter, tracer),
		logger: logger,
	}
}

// UpdateApplications syncs the manifest of every chart directory and
// commits the rewritten ones together.
func (s *ApplicationService) UpdateApplications(ctx context.Context, chartDirs []string) (bool, error) {
	if len(chartDirs) == 0 {
		s.logger.Info("no charts to sync applications for")
		return true, nil
	}

	results := s.batch.run(ctx, chartDirs, s.syncChart)
	changes := domain.NewChangeSet(results)

	commit, err := s.gate.CommitIfChanged(ctx, changes.Files, KindApplication)
	s.batch.report(ctx, results, commit, err)
	if err != nil {
		return false, err
	}
	return changes.AllSucceeded(), nil
}

func (s *ApplicationService) syncChart(ctx context.Context, dir string) domain.ChartResult {
	chart, err := s.charts.ReadChart(ctx, dir)
	if err != nil {
		return domain.Failed(dir, domain.Chart{}, fmt.Errorf("reading chart: %w", err))
	}

	change, changed, err := s.apps.SyncApplication(ctx, dir, chart)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("syncing application: %w", err))
	}
	if !changed {
		return domain.Skipped(dir, chart, "application manifest current or absent")
	}

	result := domain.Updated(dir, chart, change.Path)
	if s.differ != nil {
		result.Diff = s.differ.ComputeDiff("a/"+change.Path, "b/"+change.Path, change.Before, change.After)
	}
	return result
}
