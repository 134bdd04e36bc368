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

// LockService implements ports.LockUseCase. A Chart.lock counts as changed
// only when its digest moves; a refresh that merely bumps the generated
// timestamp is reverted.
type LockService struct {
	charts ports.ChartReaderPort
	locks  ports.LockStorePort
	deps   ports.DependencyPort
	gate   *CommitGate
	differ ports.DiffPort
	batch  *batchRunner
	logger *slog.Logger
}

// NewLockService creates a LockService. differ and reporter may be nil.
func NewLockService(
	charts ports.ChartReaderPort,
	locks ports.LockStorePort,
	deps ports.DependencyPort,
	gate *CommitGate,
	differ ports.DiffPort,
	reporter ports.ReportingPort,
	concurrency int,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *LockService {
	return &LockService{
		charts: charts,
		locks:  locks,
		deps:   deps,
		gate:   gate,
		differ: differ,
		batch:  newBatchRunner(KindLock, concurrency, reporter, logger, meter, tracer),
		logger: logger,
	}
}

// UpdateLocks refreshes the dependencies of every chart directory and
// commits the lockfiles whose digest changed.
func (s *LockService) UpdateLocks(ctx context.Context, chartDirs []string) (bool, error) {
	if len(chartDirs) == 0 {
		s.logger.Info("no charts to refresh dependencies for")
		return true, nil
	}

	results := s.batch.run(ctx, chartDirs, s.updateLock)
	changes := domain.NewChangeSet(results)

	commit, err := s.gate.CommitIfChanged(ctx, changes.Files, KindLock)
	s.batch.report(ctx, results, commit, err)
	if err != nil {
		return false, err
	}
	return changes.AllSucceeded(), nil
}

func (s *LockService) updateLock(ctx context.Context, dir string) domain.ChartResult {
	chart, err := s.charts.ReadChart(ctx, dir)
	if err != nil {
		return domain.Failed(dir, domain.Chart{}, fmt.Errorf("reading chart: %w", err))
	}
	if !chart.HasDependencies() {
		return domain.Skipped(dir, chart, "no dependencies")
	}

	before, beforeDigest, err := s.locks.ReadLock(ctx, dir)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("reading lock: %w", err))
	}

	if err := s.deps.UpdateDependencies(ctx, dir); err != nil {
		return domain.Failed(dir, chart, s.restore(ctx, dir, before, fmt.Errorf("updating dependencies: %w", err)))
	}

	after, afterDigest, err := s.locks.ReadLock(ctx, dir)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("reading refreshed lock: %w", err))
	}
	if after == nil {
		return domain.Failed(dir, chart, errors.New("dependency update produced no "+domain.LockFile))
	}

	if before != nil && beforeDigest.Digest == afterDigest.Digest {
		if err := s.locks.RestoreLock(ctx, dir, before); err != nil {
			return domain.Failed(dir, chart, fmt.Errorf("restoring lock: %w", err))
		}
		return domain.Skipped(dir, chart, "dependency digest unchanged")
	}

	path := domain.LockPath(dir)
	result := domain.Updated(dir, chart, path)
	result.Detail = afterDigest.Digest
	if s.differ != nil {
		result.Diff = s.differ.ComputeDiff("a/"+path, "b/"+path, before, after)
	}
	return result
}

// restore puts the previous lock back after a failed refresh and returns
// cause, joined with any restore error.
func (s *LockService) restore(ctx context.Context, dir string, before []byte, cause error) error {
	if before == nil {
		return cause
	}
	if err := s.locks.RestoreLock(ctx, dir, before); err != nil {
		return errors.Join(cause, fmt.Errorf("restoring lock: %w", err))
	}
	return cause
}
